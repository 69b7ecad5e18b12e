// Package distlimit is a distributed rate-limit decision service: given a
// bucket key and a token cost, it returns an allow/deny decision backed by
// shared state in an external key-value store, so a horizontally scaled
// fleet of stateless decision nodes agrees on each bucket's remaining
// allowance without coordinating directly with one another.
package distlimit
