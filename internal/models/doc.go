// Package models defines the core domain models for Splitwiser.
//
// # Ledger Models
//
//   - Balance: one directed edge "debtor owes creditor amount" inside a group
//   - Settlement: an append-only record of a payment between two members
//   - Payment: one transfer of a simplified settlement plan
//
// # Expense Models
//
//   - Expense: an amount paid by one member and divided among participants
//   - ExpenseSplit: one participant's owed share of an expense
//   - SplitPolicy: the rule (Equal, Exact, Percentage) used to divide an expense
//
// # Design Principles
//
//  1. Money is always a shopspring decimal; floats never enter the ledger.
//  2. Members are opaque IDs; display names are joined in only for presentation.
//  3. Relationships use ID strings instead of pointers.
//  4. At most one Balance edge exists per unordered member pair in a group.
package models
