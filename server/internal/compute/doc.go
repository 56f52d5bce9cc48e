// Package compute derives the day's process-time and throughput figures from
// raw operational records.
//
// reconcile.go provides Reconcile and Timeline: cooking-cycle spans for a day
// are merged, instant downtime is merged and clipped to them, and the active
// remainder is summed as net active minutes. Open cycles and open downtime run
// up to the evaluation instant, which is always passed in explicitly.
//
// estimate.go provides Totals and Estimate: the day's material consumption and
// intake are turned into a tonnes-per-hour rate and a remaining-input figure.
//
// display.go holds the presentation helpers (HH:MM:SS elapsed strings and the
// kg/t switch for remaining input).
//
// Compute(Input) runs the whole pipeline from scratch. Every function in the
// package is pure: no clock reads, no logging, no retained state, so calling it
// twice with the same arguments yields the same Output.
package compute
