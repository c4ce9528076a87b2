// Package integration contains the Integration bounded context of the gateway.
// It describes how records move between the CRM (Pipedrive) and the
// field-operations platform (Reonic).
//
// Key concepts:
//   - System / APIVersion: which remote is addressed and how its URLs and credentials are formed
//   - Endpoint: a (system, version, method, path) row keyed by Operation
//   - FieldTable: a declarative source field -> target key table that builds outbound payloads
//   - RemoteCaller: port for executing (or previewing) a RemoteCall
//   - IdentityMappingStore: FieldOps project id -> CRM deal id association used by upserts
//   - TokenStore: OAuth tokens obtained through the callback flow
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
