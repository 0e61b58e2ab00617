package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrNotFound is returned when no candidate survives scraping and category filtering
	ErrNotFound = errors.New("no matching products found")

	// ErrTimeout is returned when a required page feature did not appear in time
	ErrTimeout = errors.New("timed out waiting for page")

	// ErrParseAnomaly is returned when a raw snapshot does not have the expected structure
	ErrParseAnomaly = errors.New("unexpected product snapshot structure")

	// ErrStoreFailure is returned when reading or writing the price store fails
	ErrStoreFailure = errors.New("price store operation failed")

	// ErrRecordNotFound is returned when no record exists for an ingredient key
	ErrRecordNotFound = errors.New("ingredient record not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCatalogAPIFailure is returned when a storefront catalog request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
