// Package alerts implements the rule evaluation engine and webhook delivery
// for plant alerting. Rules such as "remaining_kg < 0" (over-consumption) or
// "state == stopped" are evaluated against each factory's daily metrics on
// the idle refresh cadence; webhooks are delivered to Teams, Slack, or
// generic HTTP targets when a rule fires or resolves.
package alerts
