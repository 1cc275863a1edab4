//go:build integration

// Package integration runs end-to-end export tests for the assetkit library.
//
// Each test builds synthetic archives and serialized files, loads them into a
// session, and exports every supported asset to disk the way a batch tool
// would.
// Run with: go test -tags=integration ./integration/...
package integration
