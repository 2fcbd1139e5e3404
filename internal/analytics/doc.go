// Package analytics derives work-habit statistics from habit entries and the
// student roster. Every function is pure: callers load the records, the
// package only computes. Empty input yields empty or zero results, never an
// error or NaN.
//
// Averages are rounded to two decimals half-up before they are classified,
// so a raw 2.996 is reported as 3.00 and classified proficient.
package analytics
