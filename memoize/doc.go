// Package memoize wraps functions so their results are kept in a cache.Storage
// and reused on later calls with the same arguments.
//
// # Overview
//
// A memoized function is identified by a name and takes a single argument.
// The cache key is the SHA-256 of the canonical JSON of
// [name, [positional, keyword]]. Use Args for functions with several
// arguments; any other argument type counts as one positional argument.
//
// # Basic Usage
//
//	storage, _ := cache.NewSQLiteStorage(ctx, cache.SQLiteConfig{Path: "cache.db", Table: cache.DefaultTableName})
//
//	fetchPrice := memoize.WrapPlain("fetchPrice", func(ctx context.Context, symbol string) (int, error) {
//		return quotes.Lookup(ctx, symbol)
//	}, memoize.Options{TTL: time.Minute, Storage: storage})
//
//	price, err := fetchPrice.Call(ctx, "X")
//
// # Modes
//
//   - ModeOff: the function always runs; storage is not touched.
//   - ModeOn: a fresh stored value is returned without running the function;
//     a miss runs it and stores the result.
//   - ModeRefresh: the function always runs and its result overwrites the
//     stored value.
//
// Overrides are resolved per call: CallOptions passed to CallWith first, then
// options attached with WithCallOptions, then the Options given to Wrap.
//
// # Results That Must Not Be Stored
//
// Functions wrapped with Wrap return a Result. A Transient result is handed
// back to the caller but never stored, and any entry already stored for the
// same arguments is removed.
//
//	scrape := memoize.Wrap("scrape", func(ctx context.Context, url string) (memoize.Result[Page], error) {
//		page, err := fetch(ctx, url)
//		if err != nil {
//			return memoize.Result[Page]{}, err
//		}
//		if page.Blocked {
//			return memoize.Transient(page), nil
//		}
//		return memoize.Persisted(page), nil
//	}, opts)
//
// # Errors
//
// Errors returned by the function or by storage are passed through
// unchanged. Arguments without a canonical JSON form fail with an error
// matching cache.IsUnserializableArgument before the function runs.
package memoize
