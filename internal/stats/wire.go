// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import "fmt"

// registrationHeader is the fixed HTTP response header sent to every new
// stat subscriber as the first frame of its stream, per spec.md §4.4.
const registrationHeader = "HTTP/1.0 200 OK\r\nCapability: streamlist stats\r\n\r\n"

// globalScope is the scope token used in wire lines for global stats.
const globalScope = "global"

// broadcastMsg is one formatted wire line paired with the flags that
// gate which subscribers receive it.
type broadcastMsg struct {
	line  []byte
	flags Flags
}

func eventLine(scope, name, value string) []byte {
	return []byte(fmt.Sprintf("EVENT %s %s %s\n", scope, name, value))
}

func deleteLine(scope, name string) []byte {
	if name == "" {
		return []byte(fmt.Sprintf("DELETE %s\n", scope))
	}
	return []byte(fmt.Sprintf("DELETE %s %s\n", scope, name))
}

func newLine(serverType, mount string) []byte {
	return []byte(fmt.Sprintf("NEW %s %s\n", serverType, mount))
}

func flushLine(mount string) []byte {
	return []byte(fmt.Sprintf("FLUSH %s\n", mount))
}

func infoLine(msg string) []byte {
	return []byte(fmt.Sprintf("INFO %s\n", msg))
}
