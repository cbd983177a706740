// Package geosearch is the gateway to the MediaWiki geosearch API.
//
// FetchList issues one list=geosearch query around a point; FetchDetail
// issues one extracts query for a page. Both run through a
// resilience.Executor and report failures as *landmark.Failure of kind
// UpstreamUnavailable or UpstreamMalformed. Nothing is cached here.
package geosearch
