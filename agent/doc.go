// Package agent defines the assistants of the hospital front desk: a router
// and two specialists (availability information and appointment booking).
//
// A Descriptor names an assistant, the dialog context it serves, its
// instruction template and its tool set. An Assistant drives a Descriptor
// against a model.Model and guarantees a usable reply: empty replies are
// re-prompted a bounded number of times before a fixed fallback is returned,
// and transient provider failures are retried with a linear backoff.
package agent
