// SPDX-License-Identifier: AGPL-3.0-or-later

package stats

import (
	"encoding/xml"
)

// ListenerLister attaches per-listener detail to a single requested
// mount's snapshot, mirroring admin_source_listeners in the original:
// this package owns no connection tracking, so the snapshot serializer
// calls out to whichever collaborator does.
type ListenerLister interface {
	// ListenersXML returns already-built <listener> child elements for
	// mount, or nil if the collaborator has nothing to attach.
	ListenersXML(mount string) []XMLListener
}

// FileFallbackLister is the ListenerLister counterpart for mounts that
// exist only as a file-fallback pseudo-source (fserve_list_clients_xml
// in the original), consulted when the requested mount has no live
// Source of its own.
type FileFallbackLister interface {
	FileFallbackListenersXML(mount string) []XMLListener
}

// XMLListener is one <listener> element attached to a source's snapshot
// when a specific mount is requested.
type XMLListener struct {
	XMLName   xml.Name `xml:"listener"`
	ID        string   `xml:"ID,omitempty"`
	IP        string   `xml:"IP,omitempty"`
	UserAgent string   `xml:"UserAgent,omitempty"`
	Connected string   `xml:"Connected,omitempty"`
}

// xmlStat is one global scalar or source-child stat rendered as its own
// element, name as tag, value as text.
type xmlStat struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// xmlSource is a <source mount="..."> wrapper around its child stats
// and, when requested, per-listener detail.
type xmlSource struct {
	XMLName   xml.Name      `xml:"source"`
	Mount     string        `xml:"mount,attr"`
	Stats     []xmlStat     `xml:",any"`
	Listeners []XMLListener `xml:"listener,omitempty"`
}

// xmlStats is the <icestats> root of a snapshot document.
type xmlStats struct {
	XMLName xml.Name    `xml:"icestats"`
	Globals []xmlStat   `xml:",any"`
	Sources []xmlSource `xml:"source"`
}

// SnapshotFilter selects which hidden-ness to include in a Snapshot
// call: a snapshot built with flags lacking Hidden omits every Hidden
// global and source (and its children); one that includes Hidden
// returns everything, admin-style.
type SnapshotFilter struct {
	// Flags gates visibility: a global/source is included unless it
	// carries Hidden and Flags does not also carry Hidden.
	Flags Flags
	// ShowMount optionally restricts the snapshot to a single source
	// (and the globals are still included), mirroring stats_get_xml's
	// show_mount parameter.
	ShowMount string
	Listeners ListenerLister
	Fallback  FileFallbackLister
}

func (f SnapshotFilter) visible(nodeFlags Flags) bool {
	if nodeFlags.Has(Hidden) {
		return f.Flags.Has(Hidden)
	}
	return true
}

// Snapshot builds the XML document rooted at <icestats> spec.md §4.5
// describes: one child element per visible global stat, one
// <source mount="..."> wrapper per visible source (or just the one
// named by ShowMount, if set), each holding its visible child stats.
// When ShowMount names a mount that exists only as a file-fallback
// pseudo-source, the snapshot still emits an empty <source> wrapper and
// consults Fallback instead of Listeners for per-listener detail.
func (e *Engine) Snapshot(filter SnapshotFilter) ([]byte, error) {
	doc := xmlStats{}

	e.store.eachGlobal(func(n *Node) {
		if filter.visible(n.Flags) {
			doc.Globals = append(doc.Globals, xmlStat{XMLName: xml.Name{Local: n.Name}, Value: n.Value})
		}
	})

	addSource := func(src *Source) {
		src.mu.RLock()
		defer src.mu.RUnlock()
		if !filter.visible(src.Flags) {
			return
		}
		xs := xmlSource{Mount: src.Mount}
		src.children.each(func(_ string, n *Node) {
			if filter.visible(n.Flags) {
				xs.Stats = append(xs.Stats, xmlStat{XMLName: xml.Name{Local: n.Name}, Value: n.Value})
			}
		})
		if filter.ShowMount == src.Mount && filter.Listeners != nil {
			xs.Listeners = filter.Listeners.ListenersXML(src.Mount)
		}
		doc.Sources = append(doc.Sources, xs)
	}

	if filter.ShowMount != "" {
		if src, ok := e.store.source(filter.ShowMount); ok {
			addSource(src)
		} else if filter.Fallback != nil {
			xs := xmlSource{Mount: filter.ShowMount, Listeners: filter.Fallback.FileFallbackListenersXML(filter.ShowMount)}
			doc.Sources = append(doc.Sources, xs)
		}
	} else {
		e.store.eachSource(addSource)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// streamlistBlockSize matches the original's 4 KB text block chunking
// for the plain-text streamlist response.
const streamlistBlockSize = 4096

// Streamlist returns the visible source mounts, one per line, as a
// sequence of ~4 KB text blocks (spec.md §4.5). When adminPrefix is
// true, each line is prefixed with "/admin/streams?mount=" for the
// relay-slave consumer that expects a fetchable URL rather than a bare
// mount name. Hidden sources are always skipped regardless of filter,
// since the streamlist has no admin variant in the original.
func (e *Engine) Streamlist(adminPrefix bool) [][]byte {
	var buf []byte
	var blocks [][]byte

	flush := func() {
		if len(buf) > 0 {
			blocks = append(blocks, buf)
			buf = nil
		}
	}

	e.store.eachSource(func(src *Source) {
		src.mu.RLock()
		hidden := src.Flags.Has(Hidden)
		mount := src.Mount
		src.mu.RUnlock()
		if hidden {
			return
		}
		line := mount + "\n"
		if adminPrefix {
			line = "/admin/streams?mount=" + mount + "\n"
		}
		if len(buf)+len(line) > streamlistBlockSize {
			flush()
		}
		buf = append(buf, line...)
	})
	flush()
	return blocks
}
