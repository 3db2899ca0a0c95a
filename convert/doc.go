// Package convert translates values between their runtime representation and
// the SQL literals stored by a database.
//
// # Handler Tables
//
// A Set holds two tables of handlers keyed by column type name, one per
// Direction. The reserved names Default and Null cover unknown types and nil
// values. Sets are immutable; Merge returns a new Set with overrides applied:
//
//	set := convert.Builtin(convert.StandardQuoter{}).Merge(convert.Handlers{
//	    "money": func(v any, o convert.Options) (any, error) { ... },
//	}, nil)
//
// # Built-in Types
//
//   - id, serial, integer, float: decimal string form
//   - decimal: fixed point with Options.Precision digits (default 2)
//   - boolean: TRUE or FALSE
//   - date, datetime: quoted yyyy-mm-dd and yyyy-mm-dd HH:MM:ss in UTC
//   - string, text, uuid: quoted string
//
// Operator values are never converted. They are handed to the dialect's
// OperatorFormatter, which is how DEFAULT ends up unquoted in an INSERT:
//
//	lit, _ := set.Format("id", convert.Plain("DEFAULT")) // DEFAULT
package convert
