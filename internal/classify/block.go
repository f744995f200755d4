package classify

import (
	"regexp"
	"salesledger/internal/money"
	"strings"
)

var (
	segmentSplitRegex = regexp.MustCompile(`\r?\n|\s\|\s`)
	labeledOrderRegex = regexp.MustCompile(`(?i)\b(?:pedido|order)\b\s*[#:·-]?\s*([A-Za-z0-9-]{4,})`)
	hashNumberRegex   = regexp.MustCompile(`#\s*([0-9]{4,})`)
	idLikeRegex       = regexp.MustCompile(`(?i)\b(?:pedido|order)\b|#\s*\d{4,}`)
)

func labelRegex(label string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^\s*\b` + label + `\b\s*[:#-]?\s*(.+)$`)
}

var (
	pedidoLabel  = labelRegex("pedido")
	orderLabel   = labelRegex("order")
	clienteLabel = labelRegex("cliente")
	produtoLabel = labelRegex("produto")
	valorLabel   = labelRegex("valor")
	dataLabel    = labelRegex("data")
)

// blockRule claims the first segment it matches and returns the extracted value.
type blockRule struct {
	role    Role
	extract func(seg string) (string, bool)
	assign  func(f *Fields, value string)
}

func labeled(re *regexp.Regexp) func(string) (string, bool) {
	return func(seg string) (string, bool) {
		m := re.FindStringSubmatch(seg)
		if m == nil {
			return "", false
		}
		v := strings.TrimSpace(m[1])
		return v, v != ""
	}
}

func orderFromText(seg string) (string, bool) {
	if m := labeledOrderRegex.FindStringSubmatch(seg); m != nil {
		return m[1], true
	}
	if m := hashNumberRegex.FindStringSubmatch(seg); m != nil {
		return m[1], true
	}
	return "", false
}

var orderTokenRegex = regexp.MustCompile(`^[#\s]*([A-Za-z0-9-]+)`)

// orderTokenOf keeps the leading token of a labeled order value ("123456 - pago").
func orderTokenOf(v string) string {
	if m := orderTokenRegex.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

func orderSegment(seg string) (string, bool) {
	for _, re := range []*regexp.Regexp{pedidoLabel, orderLabel} {
		v, ok := labeled(re)(seg)
		if !ok {
			continue
		}
		if tok := orderTokenOf(v); strings.ContainsAny(tok, "0123456789") {
			return tok, true
		}
	}
	return orderFromText(seg)
}

var blockRules = []blockRule{
	{
		role:    RoleOrderNumber,
		extract: orderSegment,
		assign:  func(f *Fields, v string) { f.OrderNumber = v },
	},
	{
		role: RoleMoney,
		extract: func(seg string) (string, bool) {
			if money.HasMarker(seg) {
				if amount := money.FirstAmount(seg); amount != "" {
					return amount, true
				}
				return money.Normalize(seg), true
			}
			if v, ok := labeled(valorLabel)(seg); ok {
				return money.Normalize(v), true
			}
			return "", false
		},
		assign: func(f *Fields, v string) { f.Valor = v },
	},
	{
		role: RoleStatus,
		extract: func(seg string) (string, bool) {
			if dt := pickDateTime(seg); dt != "" {
				return dt, true
			}
			if v, ok := labeled(dataLabel)(seg); ok {
				return v, true
			}
			if looksDateOrTime(seg) {
				return joinNonEmpty(" ", dateRegex.FindString(seg), timeRegex.FindString(seg)), true
			}
			return "", false
		},
		assign: func(f *Fields, v string) { f.DataHora = v },
	},
	{
		role:    RoleClient,
		extract: labeled(clienteLabel),
		assign:  func(f *Fields, v string) { f.Cliente = v },
	},
	{
		role:    RoleProduct,
		extract: labeled(produtoLabel),
		assign:  func(f *Fields, v string) { f.Produto = v },
	},
}

func splitSegments(cells []string) []string {
	var segs []string
	for _, c := range cells {
		for _, s := range segmentSplitRegex.Split(c, -1) {
			s = cleanSpaces(s)
			if s != "" {
				segs = append(segs, s)
			}
		}
	}
	return segs
}

func noisySegment(s string) bool {
	return looksDateOrTime(s) || strings.Contains(strings.ToUpper(s), "R$") || idLikeRegex.MatchString(s)
}

// completeTime appends the time of a separate segment when the claimed
// timestamp only carried a date.
func completeTime(segs []string, f *Fields) {
	if f.DataHora == "" || timeRegex.MatchString(f.DataHora) {
		return
	}
	for i, s := range segs {
		if f.Roles[i] != RoleNone {
			continue
		}
		if t := timeRegex.FindString(s); t != "" && !dateRegex.MatchString(s) {
			f.DataHora = f.DataHora + " " + t
			f.Roles[i] = RoleStatus
			return
		}
	}
}

// classifyBlock handles a row that was not rendered as discrete cells: label
// prefixed segments first, then the first unclassified segment is the client
// and the second one the product.
func classifyBlock(cells []string) Fields {
	segs := splitSegments(cells)
	f := Fields{Roles: make([]Role, len(segs))}

	for _, r := range blockRules {
		for i, s := range segs {
			if f.Roles[i] != RoleNone {
				continue
			}
			v, ok := r.extract(s)
			if !ok {
				continue
			}
			f.Roles[i] = r.role
			r.assign(&f, v)
			break
		}
	}

	completeTime(segs, &f)

	var candidates []int
	for i, s := range segs {
		if f.Roles[i] == RoleNone && !noisySegment(s) && alphaRunRegex.MatchString(s) {
			candidates = append(candidates, i)
		}
	}
	if f.Cliente == "" && len(candidates) > 0 {
		f.Cliente = segs[candidates[0]]
		f.Roles[candidates[0]] = RoleClient
	}
	if f.Produto == "" && len(candidates) > 1 {
		f.Produto = segs[candidates[1]]
		f.Roles[candidates[1]] = RoleProduct
	}

	return f
}
