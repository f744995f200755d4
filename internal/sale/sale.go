// Package sale defines the canonical record kept in the sales history.
package sale

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"salesledger/internal/money"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductSeparator joins product codes when an order carries more than one.
const ProductSeparator = " | "

// Item is a single line of an order.
type Item struct {
	Sku        string `json:"sku"`
	Preco      string `json:"preco,omitempty"`
	Quantidade string `json:"quantidade,omitempty"`
	Variacao   string `json:"variacao,omitempty"`
}

// Sale is the canonical record for one order. Only ID is required, every other
// field is empty when the source did not show it.
type Sale struct {
	ID       string `json:"id"`
	LegacyID string `json:"legacyId,omitempty"`

	UpsellerID   string `json:"upsellerId,omitempty"`
	OrderID      string `json:"orderId,omitempty"`
	PedidoID     string `json:"pedidoId,omitempty"`
	PedidoNumero string `json:"pedidoNumero,omitempty"`

	ProductCode string   `json:"productCode,omitempty"`
	Produto     string   `json:"produto"`
	Produtos    []string `json:"produtos,omitempty"`
	Valor       string   `json:"valor"`
	Cliente     string   `json:"cliente"`
	DataHora    string   `json:"dataHora"`

	Conta      string `json:"conta,omitempty"`
	Plataforma string `json:"plataforma,omitempty"`

	Itens []Item `json:"itens,omitempty"`
}

// UnmarshalJSON accepts valor as the panel text ("R$ 29,99") or as a bare
// number, which older histories contain. A number is read as reais.
func (s *Sale) UnmarshalJSON(data []byte) error {
	type plain Sale
	err := json.Unmarshal(data, (*plain)(s))
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "valor" {
		err = nil
	}

	var valor struct {
		Valor json.RawMessage `json:"valor"`
	}
	if json.Unmarshal(data, &valor) == nil && len(valor.Valor) > 0 {
		s.Valor = decodeValor(valor.Valor)
	}
	return err
}

func decodeValor(raw json.RawMessage) string {
	var text string
	if json.Unmarshal(raw, &text) == nil {
		return text
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
	if err != nil {
		return ""
	}
	return money.Format(amount)
}

// StrongKeys returns the distinct, trimmed, non-empty identity values of the
// sale: id, platform id, order id and payment id, in that order.
func (s Sale) StrongKeys() []string {
	var keys []string
	for _, v := range []string{s.ID, s.UpsellerID, s.OrderID, s.PedidoID} {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(keys, v) {
			continue
		}
		keys = append(keys, v)
	}
	return keys
}

// PrimaryIDs are the values a later sale's legacy id is compared against.
func (s Sale) PrimaryIDs() []string {
	var ids []string
	for _, v := range []string{s.ID, s.UpsellerID} {
		v = strings.TrimSpace(v)
		if v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}

// AddProducts unions codes into Produtos, keeping first-seen order, and
// regenerates Produto when the set has more than one member. Produto lists the
// codes sorted so it does not depend on which observation came first.
func (s *Sale) AddProducts(codes ...string) {
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(s.Produtos, c) {
			continue
		}
		s.Produtos = append(s.Produtos, c)
	}
	if len(s.Produtos) > 1 {
		codes := slices.Clone(s.Produtos)
		slices.Sort(codes)
		s.Produto = strings.Join(codes, ProductSeparator)
	}
}

// Fingerprint is the fallback identity of a sale that has no id source: the
// hex sha1 of the trimmed fields joined with "|".
//
// The field order and the hash are part of the persisted history format,
// changing either makes older entries undetectable as duplicates.
func Fingerprint(produto, valor, cliente, dataHora string) string {
	key := strings.Join([]string{
		strings.TrimSpace(produto),
		strings.TrimSpace(valor),
		strings.TrimSpace(cliente),
		strings.TrimSpace(dataHora),
	}, "|")
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
