// Package timetrack records spans of work against the wall clock.
//
// An Entry has a description, a start time and, once finished, an end
// time; entries without an end time are running timers. Tracker holds the
// rules (start not in the future, end after start, a timer stops once)
// and a Repository stores entries. SQLiteRepository keeps them in the
// time_entries table created by the embedded migrations.
//
// Statistics reports the entry count and the summed duration of finished
// entries, formatted by FormatDuration as H:MM:SS with a day prefix past
// 24 hours.
package timetrack
