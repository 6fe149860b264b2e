// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package bitrate tracks each source's outgoing byte rate with an
exponentially-weighted moving average, feeding global_calc's
outgoing_kbitrate sample (spec.md §4.7), the Go-native replacement for
the original's connection-subsystem global_getrate_avg.

A Tracker accumulates byte counts as a source writes to its listeners
and converts the smoothed rate to kbit/s on demand; it holds no
reference to any particular source or connection, so one Tracker per
mount (or one process-wide Tracker summing all mounts) both work.
*/
package bitrate
