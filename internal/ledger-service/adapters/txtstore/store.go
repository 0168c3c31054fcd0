// Package txtstore persists the order ledger as one codec line per order.
package txtstore

import (
	"bufio"
	"log/slog"
	"sort"
	"strings"

	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/codec"
	"github.com/kiryshabutor/OrderCRM/internal/ledger-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/fileio"
)

const maxLine = 1 << 20

type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load decodes every order in the file. Malformed lines are logged and
// skipped. A missing file yields no orders.
func (s *Store) Load() ([]domain.Order, error) {
	f, err := fileio.OpenIfExists(s.path)
	if err != nil || f == nil {
		return nil, err
	}
	defer f.Close()

	var orders []domain.Order
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		o, err := codec.Decode(line)
		if err != nil {
			slog.Warn("skipping malformed order record", "file", s.path, "line", lineNo, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.IO("cannot read orders file: "+s.path, err)
	}
	return orders, nil
}

// Save rewrites the file with the orders in id order.
func (s *Store) Save(orders []domain.Order) error {
	sorted := make([]domain.Order, len(orders))
	copy(sorted, orders)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	return fileio.WriteAtomic(s.path, func(w *bufio.Writer) error {
		for _, o := range sorted {
			if _, err := w.WriteString(codec.Encode(o)); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}
