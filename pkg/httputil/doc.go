// Package httputil provides the HTTP plumbing shared by the backend client:
// a TTL-bounded response cache on disk and retry with exponential backoff.
//
// # Caching
//
// [Cache] stores one JSON file per key under ~/.cache/linkscope/http/ by
// default. Neighbor responses are cached per (source, limit, node) so that
// re-expanding a node the analyst has already explored is instant. Keys
// are hashed, so any string is a valid key; [Cache.Namespace] scopes keys
// per backend.
//
//	c, _ := httputil.NewCache("", 24*time.Hour)
//	var triples []graph.RelationTriple
//	if ok, _ := c.Get(key, &triples); !ok {
//	    triples = fetch()
//	    _ = c.Set(key, triples)
//	}
//
// An expired entry reports [ErrExpired]; callers treat it as a miss.
//
// # Retry
//
// [Retry] re-runs a function while it fails with a [RetryableError]. Any
// other error is returned at once. The delay doubles after every attempt.
// Clients wrap connection errors and 5xx responses as retryable and leave
// 4xx responses unwrapped.
package httputil
