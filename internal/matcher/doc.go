// Package matcher compiles the user's term list into one whole-word,
// case-insensitive, Unicode-aware pattern.
//
// A term matches only when it is not glued to another letter, number or
// underscore on either side: "AI" matches "AI-powered" and "(AI)" but not
// "MAIL". Terms always match literally.
//
// # Strategies
//
// The natural way to express the boundary is with lookbehind and lookahead.
// Go's regexp (RE2) has neither, so two strategies sit behind the Pattern
// interface:
//
//   - lookaround: the boundary is part of the pattern, compiled with the
//     backtracking engine from github.com/dlclark/regexp2
//   - boundary: the pattern captures the trailing boundary character and the
//     leading one is checked against the preceding rune; substitutions keep
//     the captured character
//
// The strategy is chosen once per compilation by probing the configured
// engine for lookbehind support, never inside the matching path.
//
// # Absent matcher
//
// When the term list yields nothing usable, is too large, or fails to
// compile, Compile returns a nil *Matcher together with the reason. A nil
// *Matcher is valid and matches nothing.
package matcher
