// Package flows implements the automated-messaging engine.
//
// Each active flow is processed in three stages on every scheduled batch:
//
//  1. Trigger matching selects candidate customers from the flow's
//     lifecycle trigger (welcome, birthday, winback).
//  2. The eligibility pipeline narrows candidates in a fixed order:
//     ledger dedup, then consent, then cross-flow frequency suppression.
//  3. Delivery renders the flow template per customer, hands the message
//     to the provider client and records the attempt in the send ledger.
//
// The ledger row is written before a send counts as complete, so a crash
// between provider accept and ledger write can at worst repeat a send.
// The engine never double-counts: a duplicate ledger key means another
// run already handled the customer for this period.
//
// The engine also consumes provider webhook events, which update ledger
// status, invalidate hard-bounced addresses and opt out complainers.
package flows
