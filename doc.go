// Package capgains computes the yearly taxable income of a trading ledger.
//
// The ledger is an append only list of activities (purchases, sales, fees,
// dividends and interest) along with daily fx rates, kept behind the [Store]
// interface. On top of it:
//   - [Reconciler] matches each sale against the oldest purchases of the same
//     asset (FIFO) and records the matches as links.
//   - [Reporter] builds the [Report] of a tax year: dividends, interest and the
//     capital gains of the reconciled sales, converted into a report currency
//     with the closest earlier fx rate ([FXResolver]).
//
// Quantities are fixed point integers with 4 decimals ([Quantity]), amounts
// and rates are exact decimals: no floating point value enters a computation.
//
// This package serves as the foundational logic for the `cgt` command-line tool.
package capgains
