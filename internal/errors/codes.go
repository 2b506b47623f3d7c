// Package errors provides structured error handling for menusearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index cache and storage errors
//   - 3XX: Catalog provider and network errors
//   - 4XX: Validation errors
//   - 5XX: Search and index internals
package errors

// Category groups error codes by the subsystem that raised them.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryStorage    Category = "STORAGE"
	CategoryProvider   Category = "PROVIDER"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal means the operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError means the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning means the operation continued in a degraded mode.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Cache and storage errors (200-299)
	ErrCodeCacheRead    = "ERR_201_CACHE_READ"
	ErrCodeCacheWrite   = "ERR_202_CACHE_WRITE"
	ErrCodeCacheMiss    = "ERR_203_CACHE_MISS"
	ErrCodeCatalogFile  = "ERR_204_CATALOG_FILE"
	ErrCodeCorruptIndex = "ERR_205_CORRUPT_INDEX"

	// Provider and network errors (300-399)
	ErrCodeProviderTimeout     = "ERR_301_PROVIDER_TIMEOUT"
	ErrCodeProviderUnavailable = "ERR_302_PROVIDER_UNAVAILABLE"
	ErrCodeEmbedderUnavailable = "ERR_303_EMBEDDER_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput     = "ERR_401_INVALID_INPUT"
	ErrCodeUnknownOrderType = "ERR_402_UNKNOWN_ORDER_TYPE"
	ErrCodeInvalidJudgments = "ERR_403_INVALID_JUDGMENTS"
	ErrCodeQueryEmpty       = "ERR_404_QUERY_EMPTY"

	// Search and index errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeEmbeddingFailed  = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed     = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexBuildFailed = "ERR_505_INDEX_BUILD_FAILED"
	ErrCodeIndexUnavailable = "ERR_506_INDEX_UNAVAILABLE"
)

// categoryFromCode reads the hundreds digit of the code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexUnavailable, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeCacheRead, ErrCodeCacheWrite, ErrCodeCacheMiss, ErrCodeCorruptIndex,
		ErrCodeEmbedderUnavailable, ErrCodeEmbeddingFailed:
		// The caller falls back to an in-memory index or identity order.
		return SeverityWarning
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeProviderUnavailable, ErrCodeEmbedderUnavailable:
		return true
	default:
		return false
	}
}
