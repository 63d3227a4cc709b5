// CLAUDE:SUMMARY Full-length Double Metaphone (Lawrence Philips' rules, after PostgreSQL fuzzystrmatch) producing uncapped primary and secondary codes.
package names

import "strings"

// metaphone holds the state of one Double Metaphone run. word is the
// uppercased input padded with spaces so lookahead never runs off the end.
type metaphone struct {
	word      string
	length    int
	last      int
	slavo     bool
	primary   strings.Builder
	secondary strings.Builder
}

// doubleMetaphone returns both codes of word. Unlike the classic four-letter
// variant, codes are never truncated: every combination the directory files
// keeps its whole signature.
func doubleMetaphone(word string) (string, string) {
	upper := strings.ToUpper(word)
	if upper == "" {
		return "", ""
	}
	m := &metaphone{
		word:   upper + "     ",
		length: len(upper),
		last:   len(upper) - 1,
	}
	m.slavo = strings.Contains(upper, "W") || strings.Contains(upper, "K") ||
		strings.Contains(upper, "CZ") || strings.Contains(upper, "WITZ")
	m.encode()
	return m.primary.String(), m.secondary.String()
}

func (m *metaphone) add(p, s string) {
	m.primary.WriteString(p)
	m.secondary.WriteString(s)
}

func (m *metaphone) addBoth(code string) { m.add(code, code) }

func (m *metaphone) at(pos int) byte {
	if pos < 0 || pos >= len(m.word) {
		return 0
	}
	return m.word[pos]
}

// match reports whether any of targets occurs at start. All targets of one
// call have the same length.
func (m *metaphone) match(start int, targets ...string) bool {
	if start < 0 || start >= len(m.word) {
		return false
	}
	for _, t := range targets {
		if start+len(t) <= len(m.word) && m.word[start:start+len(t)] == t {
			return true
		}
	}
	return false
}

func (m *metaphone) vowel(pos int) bool {
	switch m.at(pos) {
	case 'A', 'E', 'I', 'O', 'U', 'Y':
		return true
	}
	return false
}

// germanic reports a "van ", "von " or "sch" prefix.
func (m *metaphone) germanic() bool {
	return m.match(0, "VAN ", "VON ") || m.match(0, "SCH")
}

// single writes code and skips a doubled letter.
func (m *metaphone) single(cur int, code string, doubled byte) int {
	m.addBoth(code)
	if m.at(cur+1) == doubled {
		return cur + 2
	}
	return cur + 1
}

func (m *metaphone) encode() {
	cur := 0
	if m.match(0, "GN", "KN", "PN", "WR", "PS") {
		cur++
	}
	// Initial X sounds like S (Xavier).
	if m.at(0) == 'X' {
		m.addBoth("S")
		cur++
	}

	for cur < m.length {
		switch m.at(cur) {
		case 'A', 'E', 'I', 'O', 'U', 'Y':
			if cur == 0 {
				m.addBoth("A")
			}
			cur++
		case 'B':
			cur = m.single(cur, "P", 'B')
		case 'C':
			cur = m.ruleC(cur)
		case 'D':
			cur = m.ruleD(cur)
		case 'F':
			cur = m.single(cur, "F", 'F')
		case 'G':
			cur = m.ruleG(cur)
		case 'H':
			if (cur == 0 || m.vowel(cur-1)) && m.vowel(cur+1) {
				m.addBoth("H")
				cur += 2
			} else {
				cur++
			}
		case 'J':
			cur = m.ruleJ(cur)
		case 'K':
			cur = m.single(cur, "K", 'K')
		case 'L':
			cur = m.ruleL(cur)
		case 'M':
			m.addBoth("M")
			if (m.match(cur-1, "UMB") && (cur+1 == m.last || m.match(cur+2, "ER"))) || m.at(cur+1) == 'M' {
				cur += 2
			} else {
				cur++
			}
		case 'N':
			cur = m.single(cur, "N", 'N')
		case 'P':
			if m.at(cur+1) == 'H' {
				m.addBoth("F")
				cur += 2
			} else {
				m.addBoth("P")
				if m.match(cur+1, "P", "B") {
					cur += 2
				} else {
					cur++
				}
			}
		case 'Q':
			cur = m.single(cur, "K", 'Q')
		case 'R':
			// French final -ier (Rogier), but not Hochmeier.
			if cur == m.last && !m.slavo && m.match(cur-2, "IE") && !m.match(cur-4, "ME", "MA") {
				m.add("", "R")
			} else {
				m.addBoth("R")
			}
			if m.at(cur+1) == 'R' {
				cur += 2
			} else {
				cur++
			}
		case 'S':
			cur = m.ruleS(cur)
		case 'T':
			cur = m.ruleT(cur)
		case 'V':
			cur = m.single(cur, "F", 'V')
		case 'W':
			cur = m.ruleW(cur)
		case 'X':
			// French final -iaux, -eaux, -aux, -oux are silent.
			if !(cur == m.last && (m.match(cur-3, "IAU", "EAU") || m.match(cur-2, "AU", "OU"))) {
				m.addBoth("KS")
			}
			if m.match(cur+1, "C", "X") {
				cur += 2
			} else {
				cur++
			}
		case 'Z':
			cur = m.ruleZ(cur)
		default:
			cur++
		}
	}
}

func (m *metaphone) ruleC(cur int) int {
	// Germanic -ach- (Bacher, Macher), not Bacchus.
	if cur > 1 && !m.vowel(cur-2) && m.match(cur-1, "ACH") &&
		m.at(cur+2) != 'I' && (m.at(cur+2) != 'E' || m.match(cur-2, "BACHER", "MACHER")) {
		m.addBoth("K")
		return cur + 2
	}
	if cur == 0 && m.match(cur, "CAESAR") {
		m.addBoth("S")
		return cur + 2
	}
	if m.match(cur, "CHIA") {
		m.addBoth("K")
		return cur + 2
	}

	if m.match(cur, "CH") {
		if cur > 0 && m.match(cur, "CHAE") {
			m.add("K", "X")
			return cur + 2
		}
		// Greek roots: chorus, chemistry, but not chore.
		if cur == 0 && (m.match(cur+1, "HARAC", "HARIS") || m.match(cur+1, "HOR", "HYM", "HIA", "HEM")) &&
			!m.match(0, "CHORE") {
			m.addBoth("K")
			return cur + 2
		}
		if m.germanic() || m.match(cur-2, "ORCHES", "ARCHIT", "ORCHID") || m.match(cur+2, "T", "S") ||
			((m.match(cur-1, "A", "O", "U", "E") || cur == 0) &&
				m.match(cur+2, "L", "R", "N", "M", "B", "H", "F", "V", "W", " ")) {
			m.addBoth("K")
		} else if cur > 0 {
			if m.match(0, "MC") {
				m.addBoth("K")
			} else {
				m.add("X", "K")
			}
		} else {
			m.addBoth("X")
		}
		return cur + 2
	}

	// Czerny, but not -wicz.
	if m.match(cur, "CZ") && !m.match(cur-2, "WICZ") {
		m.add("S", "X")
		return cur + 2
	}
	if m.match(cur+1, "CIA") {
		m.addBoth("X")
		return cur + 3
	}

	// Double C, but not McClellan.
	if m.match(cur, "CC") && !(cur == 1 && m.at(0) == 'M') {
		if m.match(cur+2, "I", "E", "H") && !m.match(cur+2, "HU") {
			// Accident, accede, succeed.
			if (cur == 1 && m.at(cur-1) == 'A') || m.match(cur-1, "UCCEE", "UCCES") {
				m.addBoth("KS")
			} else {
				m.addBoth("X")
			}
			return cur + 3
		}
		m.addBoth("K")
		return cur + 2
	}

	if m.match(cur, "CK", "CG", "CQ") {
		m.addBoth("K")
		return cur + 2
	}
	if m.match(cur, "CI", "CE", "CY") {
		if m.match(cur, "CIO", "CIE", "CIA") {
			m.add("S", "X")
		} else {
			m.addBoth("S")
		}
		return cur + 2
	}

	m.addBoth("K")
	// Mac Caffrey, Mac Gregor.
	if m.match(cur+1, " C", " Q", " G") {
		return cur + 3
	}
	if m.match(cur+1, "C", "K", "Q") && !m.match(cur+1, "CE", "CI") {
		return cur + 2
	}
	return cur + 1
}

func (m *metaphone) ruleD(cur int) int {
	if m.match(cur, "DG") {
		if m.match(cur+2, "I", "E", "Y") {
			m.addBoth("J")
			return cur + 3
		}
		m.addBoth("TK")
		return cur + 2
	}
	if m.match(cur, "DT", "DD") {
		m.addBoth("T")
		return cur + 2
	}
	m.addBoth("T")
	return cur + 1
}

func (m *metaphone) ruleG(cur int) int {
	if m.at(cur+1) == 'H' {
		return m.ruleGH(cur)
	}

	if m.at(cur+1) == 'N' {
		switch {
		case cur == 1 && m.vowel(0) && !m.slavo:
			m.add("KN", "N")
		case !m.match(cur+2, "EY") && m.at(cur+1) != 'Y' && !m.slavo:
			m.add("N", "KN")
		default:
			m.addBoth("KN")
		}
		return cur + 2
	}

	// Tagliaro.
	if m.match(cur+1, "LI") && !m.slavo {
		m.add("KL", "L")
		return cur + 2
	}

	// Initial ges-, gep-, gel-, gie- and friends.
	if cur == 0 && (m.at(cur+1) == 'Y' ||
		m.match(cur+1, "ES", "EP", "EB", "EL", "EY", "IB", "IL", "IN", "IE", "EI", "ER")) {
		m.add("K", "J")
		return cur + 2
	}

	// -ger-, -gy-, but not danger, ranger, manger.
	if (m.match(cur+1, "ER") || m.at(cur+1) == 'Y') &&
		!m.match(0, "DANGER", "RANGER", "MANGER") &&
		!m.match(cur-1, "E", "I") && !m.match(cur-1, "RGY", "OGY") {
		m.add("K", "J")
		return cur + 2
	}

	// Italian biaggi.
	if m.match(cur+1, "E", "I", "Y") || m.match(cur-1, "AGGI", "OGGI") {
		switch {
		case m.germanic() || m.match(cur+1, "ET"):
			m.addBoth("K")
		case m.match(cur+1, "IER "):
			m.addBoth("J")
		default:
			m.add("J", "K")
		}
		return cur + 2
	}

	return m.single(cur, "K", 'G')
}

func (m *metaphone) ruleGH(cur int) int {
	if cur > 0 && !m.vowel(cur-1) {
		m.addBoth("K")
		return cur + 2
	}
	// Ghislane, Ghiradelli.
	if cur == 0 {
		if m.at(cur+2) == 'I' {
			m.addBoth("J")
		} else {
			m.addBoth("K")
		}
		return cur + 2
	}
	// Parker's rule: Hugh.
	if (cur > 1 && m.match(cur-2, "B", "H", "D")) ||
		(cur > 2 && m.match(cur-3, "B", "H", "D")) ||
		(cur > 3 && m.match(cur-4, "B", "H")) {
		return cur + 2
	}
	// Laugh, McLaughlin, cough, rough.
	if cur > 2 && m.at(cur-1) == 'U' && m.match(cur-3, "C", "G", "L", "R", "T") {
		m.addBoth("F")
	} else if m.at(cur-1) != 'I' {
		m.addBoth("K")
	}
	return cur + 2
}

func (m *metaphone) ruleJ(cur int) int {
	// Spanish Jose, San Jacinto.
	if m.match(cur, "JOSE") || m.match(0, "SAN ") {
		if (cur == 0 && m.at(cur+4) == ' ') || m.match(0, "SAN ") {
			m.addBoth("H")
		} else {
			m.add("J", "H")
		}
		return cur + 1
	}

	switch {
	case cur == 0:
		m.add("J", "A")
	case m.vowel(cur-1) && !m.slavo && (m.at(cur+1) == 'A' || m.at(cur+1) == 'O'):
		// Spanish bajador.
		m.add("J", "H")
	case cur == m.last:
		m.add("J", "")
	case !m.match(cur+1, "L", "T", "K", "S", "N", "M", "B", "Z") && !m.match(cur-1, "S", "K", "L"):
		m.addBoth("J")
	}

	if m.at(cur+1) == 'J' {
		return cur + 2
	}
	return cur + 1
}

func (m *metaphone) ruleL(cur int) int {
	if m.at(cur+1) != 'L' {
		m.addBoth("L")
		return cur + 1
	}
	// Spanish Cabrillo, Gallegos.
	if (cur == m.length-3 && m.match(cur-1, "ILLO", "ILLA", "ALLE")) ||
		((m.match(m.last-1, "AS", "OS") || m.match(m.last, "A", "O")) && m.match(cur-1, "ALLE")) {
		m.add("L", "")
		return cur + 2
	}
	m.addBoth("L")
	return cur + 2
}

func (m *metaphone) ruleS(cur int) int {
	// Island, isle, Carlisle, Carlysle.
	if m.match(cur-1, "ISL", "YSL") {
		return cur + 1
	}
	if cur == 0 && m.match(cur, "SUGAR") {
		m.add("X", "S")
		return cur + 1
	}
	if m.match(cur, "SH") {
		if m.match(cur+1, "HEIM", "HOEK", "HOLM", "HOLZ") {
			m.addBoth("S")
		} else {
			m.addBoth("X")
		}
		return cur + 2
	}
	// Italian and Armenian -sio-, -sia-, -sian.
	if m.match(cur, "SIO", "SIA") || m.match(cur, "SIAN") {
		if m.slavo {
			m.addBoth("S")
		} else {
			m.add("S", "X")
		}
		return cur + 3
	}
	// Smith matching Schmidt, Snider matching Schneider, Slavic -sz-.
	if (cur == 0 && m.match(cur+1, "M", "N", "L", "W")) || m.match(cur+1, "Z") {
		m.add("S", "X")
		if m.match(cur+1, "Z") {
			return cur + 2
		}
		return cur + 1
	}
	if m.match(cur, "SC") {
		return m.ruleSC(cur)
	}
	// French Resnais, Artois.
	if cur == m.last && m.match(cur-2, "AI", "OI") {
		m.add("", "S")
	} else {
		m.addBoth("S")
	}
	if m.match(cur+1, "S", "Z") {
		return cur + 2
	}
	return cur + 1
}

func (m *metaphone) ruleSC(cur int) int {
	if m.at(cur+2) == 'H' {
		// Dutch school, schooner; Schermerhorn, Schenker.
		if m.match(cur+3, "OO", "ER", "EN", "UY", "ED", "EM") {
			if m.match(cur+3, "ER", "EN") {
				m.add("X", "SK")
			} else {
				m.addBoth("SK")
			}
			return cur + 3
		}
		if cur == 0 && !m.vowel(3) && m.at(3) != 'W' {
			m.add("X", "S")
		} else {
			m.addBoth("X")
		}
		return cur + 3
	}
	if m.match(cur+2, "I", "E", "Y") {
		m.addBoth("S")
		return cur + 3
	}
	m.addBoth("SK")
	return cur + 3
}

func (m *metaphone) ruleT(cur int) int {
	if m.match(cur, "TION") {
		m.addBoth("X")
		return cur + 3
	}
	if m.match(cur, "TIA", "TCH") {
		m.addBoth("X")
		return cur + 3
	}
	if m.match(cur, "TH") || m.match(cur, "TTH") {
		// Thomas, Thames, or Germanic.
		if m.match(cur+2, "OM", "AM") || m.germanic() {
			m.addBoth("T")
		} else {
			m.add("0", "T")
		}
		return cur + 2
	}
	m.addBoth("T")
	if m.match(cur+1, "T", "D") {
		return cur + 2
	}
	return cur + 1
}

func (m *metaphone) ruleW(cur int) int {
	if m.match(cur, "WR") {
		m.addBoth("R")
		return cur + 2
	}
	if cur == 0 {
		if m.vowel(cur + 1) {
			m.add("A", "F")
		} else if m.match(cur, "WH") {
			m.addBoth("A")
		}
	}
	// Arnow matching Arnoff.
	if (cur == m.last && m.vowel(cur-1)) || m.match(cur-1, "EWSKI", "EWSKY", "OWSKI", "OWSKY") || m.match(0, "SCH") {
		m.add("", "F")
		return cur + 1
	}
	// Polish Filipowicz.
	if m.match(cur, "WICZ", "WITZ") {
		m.add("TS", "FX")
		return cur + 4
	}
	return cur + 1
}

func (m *metaphone) ruleZ(cur int) int {
	// Pinyin Zhao.
	if m.at(cur+1) == 'H' {
		m.addBoth("J")
		return cur + 2
	}
	if m.match(cur+1, "ZO", "ZI", "ZA") || (m.slavo && cur > 0 && m.at(cur-1) != 'T') {
		m.add("S", "TS")
	} else {
		m.addBoth("S")
	}
	if m.at(cur+1) == 'Z' {
		return cur + 2
	}
	return cur + 1
}
