// Package id generates identifiers for definitions and journal entries.
//
// Definitions registered without an ID and without a provider name get a
// Short one. Journal entries use TimeOrdered v7 identifiers, whose string
// order follows creation time.
package id
