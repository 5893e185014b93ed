// Package api provides the request/reply snapshot client for the venue's
// info endpoint.
//
// All queries are POSTs against one endpoint, discriminated by a "type"
// field: allMids (mid prices), l2Book (orderbook snapshot), candleSnapshot
// (historical candles). The streaming feed is out of this package's scope;
// see internal/connection.
package api
