// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/survey-engine/pkg/types"
)

// particles are surname prefixes kept attached to the family name when
// splitting "First Last" style display names.
var particles = map[string]struct{}{
	"van": {}, "von": {}, "de": {}, "di": {}, "da": {},
	"la": {}, "le": {}, "der": {}, "den": {}, "del": {},
}

// inTextCite renders a Harvard-style in-text citation such as
// "(Petrova & Wei, 2021)" or "(Cho et al., n.d.)".
func inTextCite(authors []string, year int) string {
	var surnames []string
	for _, a := range authors {
		if s, _ := splitName(a); s != "" {
			surnames = append(surnames, s)
		}
	}

	var who string
	switch len(surnames) {
	case 0:
		who = "Author Unknown"
	case 1:
		who = surnames[0]
	case 2:
		who = surnames[0] + " & " + surnames[1]
	default:
		who = surnames[0] + " et al."
	}
	return "(" + who + ", " + yearLabel(year) + ")"
}

// refEntry renders one reference list entry:
// "Petrova, M. & Wei, J. (2021). *Title.* Venue."
func refEntry(doc types.Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "[Title Not Available]"
	}
	entry := refAuthors(doc.Authors) + " (" + yearLabel(doc.Year) + "). *" + title + ".*"
	if venue := strings.TrimSpace(doc.Venue); venue != "" {
		entry += " " + venue + "."
	}
	return entry
}

// refAuthors renders the author list for a reference entry, joining the
// final pair with an ampersand: "Jones, A., Smith, B. & Brown, C.".
func refAuthors(authors []string) string {
	var parts []string
	for _, a := range authors {
		s, initials := splitName(a)
		if s == "" {
			continue
		}
		if initials != "" {
			parts = append(parts, s+", "+initials)
		} else {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return "Author Unknown"
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " & " + parts[len(parts)-1]
	}
}

// splitName breaks a display name into surname and given-name initials,
// accepting both "Last, First" and "First Last" forms.
func splitName(name string) (surname, initials string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.IndexByte(name, ','); i >= 0 {
		return strings.TrimSpace(name[:i]), initialsOf(strings.Fields(name[i+1:]))
	}

	fields := strings.Fields(name)
	if len(fields) == 1 {
		return fields[0], ""
	}
	start := len(fields) - 1
	for start > 0 {
		if _, ok := particles[strings.ToLower(fields[start-1])]; !ok {
			break
		}
		start--
	}
	return strings.Join(fields[start:], " "), initialsOf(fields[:start])
}

// initialsOf renders "Maria Jun" as "M. J.".
func initialsOf(given []string) string {
	var out []string
	for _, g := range given {
		g = strings.Trim(g, ".")
		r := []rune(g)
		if len(r) == 0 || !unicode.IsLetter(r[0]) {
			continue
		}
		out = append(out, string(unicode.ToUpper(r[0]))+".")
	}
	return strings.Join(out, " ")
}

func yearLabel(year int) string {
	if year > 0 {
		return strconv.Itoa(year)
	}
	return "n.d."
}
