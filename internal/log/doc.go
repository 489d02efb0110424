// Package log provides the application's slog setup with masking of
// values that must not reach log output.
//
// SecureHandler wraps any slog.Handler and rewrites attributes before they
// are written:
//   - credentials (proxy authorization, cookies, tokens, passcodes) are
//     replaced by MaskValue, found by key name or by value shape;
//   - filtered terms are masked wherever they appear in a string value,
//     and attributes named term, terms or names are masked whole.
//
// The terms are the words the user asked never to see, so a debug log of a
// scan must not print them back. They are set with SetTerms and may change
// while the logger is in use.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	log.SetTerms(logger, s.Terms)
//	slog.SetDefault(logger)
package log
