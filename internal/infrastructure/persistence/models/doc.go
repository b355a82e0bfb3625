// Package models holds the GORM persistence models for the ledger tables.
// Domain types carry no ORM tags; repositories convert with ToDomain and
// FromDomain at the boundary.
//
// Amounts are decimal(18,2) columns. Calendar days (due dates, lease terms,
// reading dates) use datatypes.Date so the time of day never leaks into
// comparisons.
package models
