package invoice

import "strings"

// maxChunkLines bounds each line-item extraction call. The last chunk may be
// shorter.
const maxChunkLines = 80

// sectionMarkers are headers that commonly open the itemized portion of a
// medical invoice. Matched case-insensitively; the earliest hit wins.
var sectionMarkers = []string{
	"ITEMIZED SERVICES", "LINE ITEMS", "SERVICES:", "CHARGES:",
	"BILL DETAILS", "PARTICULARS", "DIAGNOSTICS", "PHARMACY",
	"PROCEDURE DETAILS", "ROOM / SERVICE", "CHARGES BREAKDOWN",
	"BILLING DETAILS", "SERVICE DETAILS", "TREATMENT CHARGES",
	"INVESTIGATION", "CONSULTATION", "CONSUMABLES", "MEDICINE",
}

// itemizedSection returns the invoice text from the earliest section marker
// onward, or the full text when no marker is present. Markers are matched
// byte-wise with ASCII case folding so offsets stay valid for invoices
// carrying non-ASCII text, where an uppercased copy can shift byte positions.
func itemizedSection(fullText string) string {
	earliest := -1
	for _, marker := range sectionMarkers {
		if idx := indexASCIIFold(fullText, marker); idx != -1 && (earliest == -1 || idx < earliest) {
			earliest = idx
		}
	}

	if earliest == -1 {
		return fullText
	}
	return fullText[earliest:]
}

// indexASCIIFold returns the byte offset of the first ASCII
// case-insensitive occurrence of marker in s, or -1.
func indexASCIIFold(s, marker string) int {
	n := len(marker)
	for i := 0; i+n <= len(s); i++ {
		if equalASCIIFold(s[i:i+n], marker) {
			return i
		}
	}
	return -1
}

func equalASCIIFold(s, t string) bool {
	for i := 0; i < len(s); i++ {
		a, b := s[i], t[i]
		if 'a' <= a && a <= 'z' {
			a -= 'a' - 'A'
		}
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// chunkByLines splits text into chunks of at most maxLines lines each.
func chunkByLines(text string, maxLines int) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var chunks []string
	var current strings.Builder
	count := 0

	for _, line := range lines {
		current.WriteString(line)
		current.WriteString("\n")
		count++
		if count >= maxLines {
			chunks = append(chunks, current.String())
			current.Reset()
			count = 0
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
