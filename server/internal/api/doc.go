// Package api implements the HTTP REST API for plantops-server.
//
// New(Options) returns an http.Handler (a gorilla/mux router) that serves:
//
//	GET    /api/v1/health                                   server status and configured factories
//	GET    /api/v1/alerts                                   firing and recently resolved alerts
//	GET    /api/v1/factories/{factory}/today                today's metrics and display payload
//	GET    /api/v1/factories/{factory}/cycles               cooking cycles (?date= filters)
//	POST   /api/v1/factories/{factory}/cycles               start a cycle or log a completed one
//	POST   /api/v1/factories/{factory}/cycles/{id}/finish   close an open cycle
//	PUT    /api/v1/factories/{factory}/cycles/{id}          correct a cycle (edit-locked)
//	DELETE /api/v1/factories/{factory}/cycles/{id}          delete a cycle (edit-locked)
//	GET    /api/v1/factories/{factory}/downtime             downtime records
//	POST   /api/v1/factories/{factory}/downtime/start       stop the line now
//	POST   /api/v1/factories/{factory}/downtime/{id}/stop   resume the line
//	POST   /api/v1/factories/{factory}/downtime             log downtime after the fact
//	DELETE /api/v1/factories/{factory}/downtime/{id}        delete downtime (edit-locked)
//	GET    /api/v1/factories/{factory}/production           production entries
//	POST   /api/v1/factories/{factory}/production           add a production entry
//	DELETE /api/v1/factories/{factory}/production/{id}      delete one (edit-locked)
//	GET    /api/v1/factories/{factory}/receipts             material receipts
//	POST   /api/v1/factories/{factory}/receipts             add a receipt
//	DELETE /api/v1/factories/{factory}/receipts/{id}        delete one (edit-locked)
//	GET    /api/v1/factories/{factory}/lock/{kind}/{id}     {requires_reauth} probe
//
// Edit-locked routes read the supervisor credential from the
// X-Supervisor-Credential header. A locked record without a credential gets
// 403 {"error":"reauth_required"}; a credential that does not verify gets 401.
//
// All endpoints respond with Content-Type: application/json. JSON types are
// defined in types.go.
package api
