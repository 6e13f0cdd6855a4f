// Package services contains the core business logic for vigil: the
// normalization engine, the retrieval tool, the correlation state
// machine, the guardrail policy and the ingest orchestrator.
//
// Services implement the driving ports and depend only on the domain
// and the driven ports - never on adapters.
package services
