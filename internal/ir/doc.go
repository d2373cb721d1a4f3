// Package ir provides the foundational types shared by every layer of the
// AQL compiler: semantic type tags, native literal values, the compile
// error taxonomy and canonical JSON used for diagnostics and cache keys.
//
// This package contains no compiler logic. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Literal values form a sealed union (Value); only this package can
//     add variants, so type switches in the compiler are exhaustive.
//   - Dates are integer-encoded (YYYYMMDD, YYYYMM, YYYY) everywhere.
//   - Canonical JSON sorts object keys and NFC-normalises strings so the
//     same query description always renders and hashes identically.
package ir
