// Package ledgerdb mirrors the sales history into a SQL database for ad hoc
// querying. The JSON history stays the source of truth, every export replaces
// the mirrored rows.
package ledgerdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"salesledger/internal/money"
	"salesledger/internal/sale"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

func isRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "http://", "https://", "ws://", "wss://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

// Open opens a local sqlite file, creating it when missing, or a remote libsql
// database when dsn is a libsql/http url.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	if isRemote(dsn) {
		return sql.Open("libsql", dsn)
	}

	err := os.MkdirAll(filepath.Dir(dsn), 0o755)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func cents(valor string) sql.NullInt64 {
	amount, ok := money.ParseAmount(valor)
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: amount.Shift(2).Round(0).IntPart(), Valid: true}
}

const insertSale = `insert into sale (
    position, id, legacy_id, upseller_id, order_id, pedido_id, pedido_numero,
    product_code, produto, produtos, valor, valor_cents, cliente, data_hora,
    conta, plataforma
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertItem = `insert into sale_item (
    sale_position, position, sku, preco, quantidade, variacao
) values (?, ?, ?, ?, ?, ?)`

// Export replaces the mirrored rows with history in a single transaction and
// returns the number of sales written.
func Export(ctx context.Context, db *sql.DB, history []sale.Sale) (int, error) {
	err := Migrate(ctx, db)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from sale_item")
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, "delete from sale")
	if err != nil {
		return 0, err
	}

	for i, s := range history {
		produtos, err := json.Marshal(append([]string{}, s.Produtos...))
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(
			ctx, insertSale,
			i, s.ID, s.LegacyID, s.UpsellerID, s.OrderID, s.PedidoID, s.PedidoNumero,
			s.ProductCode, s.Produto, string(produtos), s.Valor, cents(s.Valor), s.Cliente, s.DataHora,
			s.Conta, s.Plataforma,
		)
		if err != nil {
			return 0, fmt.Errorf("insert sale %s: %w", s.ID, err)
		}
		for j, item := range s.Itens {
			_, err = tx.ExecContext(ctx, insertItem, i, j, item.Sku, item.Preco, item.Quantidade, item.Variacao)
			if err != nil {
				return 0, fmt.Errorf("insert item of sale %s: %w", s.ID, err)
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return len(history), nil
}
