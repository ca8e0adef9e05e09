// Package segments implements the audience segment service.
//
// A segment is a saved set of filter rules over the customer base of a
// location. Membership is never materialized: every preview, count and
// automation run re-evaluates the rules against the live customer table,
// so results always reflect current data.
//
// The service layer contains pure business logic and depends on the
// Repository and CustomerSource interfaces defined in repository.go.
// It never imports net/http or database/sql directly.
package segments
