package postamble

import "strings"

// Anchors delimiting the generated sections inside the host makefile.
// Everything between an anchor pair is ours to replace; a makefile
// without the anchors gets them appended.
const (
	rulesBegin = "# --- postmk rules (generated, do not edit) ---"
	rulesEnd   = "# --- end postmk rules ---"
	cleanBegin = "# --- postmk clean list (generated, do not edit) ---"
	cleanEnd   = "# --- end postmk clean list ---"
)

// Splice inserts or replaces both generated sections in the host
// makefile text. Splicing the same blocks twice is a no-op: the
// anchored sections are replaced, never duplicated.
func Splice(makefile, rules, clean string) string {
	return SpliceClean(SpliceRules(makefile, rules), clean)
}

// SpliceRules inserts or replaces only the extra-rules section.
func SpliceRules(makefile, rules string) string {
	return spliceSection(makefile, rulesBegin, rulesEnd, rules)
}

// SpliceClean inserts or replaces only the clean-list section, wrapping
// the file list into a variable the appended clean rule consumes.
func SpliceClean(makefile, clean string) string {
	cleanSection := "POSTMK_CLEAN = " + strings.Join(strings.Fields(clean), " ") + "\n\n" +
		"clean ::\n\trm -f $(POSTMK_CLEAN)\n"
	return spliceSection(makefile, cleanBegin, cleanEnd, cleanSection)
}

func spliceSection(text, begin, end, body string) string {
	section := begin + "\n" + body + end + "\n"

	start := strings.Index(text, begin)
	if start < 0 {
		if text != "" && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		return text + "\n" + section
	}

	stop := strings.Index(text[start:], end)
	if stop < 0 {
		// begin anchor without its end: treat the rest of the file as
		// the stale section
		return text[:start] + section
	}
	stop += start + len(end)
	if stop < len(text) && text[stop] == '\n' {
		stop++
	}
	return text[:start] + section + text[stop:]
}
