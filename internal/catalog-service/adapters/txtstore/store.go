// Package txtstore persists the product catalog as a flat record file with
// one `name;price;stock` line per product.
package txtstore

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kiryshabutor/OrderCRM/internal/catalog-service/domain"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/apperr"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/fileio"
	"github.com/kiryshabutor/OrderCRM/internal/pkg/money"
)

// Store reads and writes the catalog record file. It applies no business rules.
type Store struct {
	path string
}

// New returns a Store backed by the file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads every product record. A missing file yields an empty catalog.
func (s *Store) Load() (map[string]domain.Product, error) {
	result := make(map[string]domain.Product)

	f, err := fileio.OpenIfExists(s.path)
	if err != nil || f == nil {
		return result, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		p, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		result[domain.Key(p.Name)] = p
	}
	if err := sc.Err(); err != nil {
		return nil, apperr.IO("cannot read products file: "+s.path, err)
	}
	return result, nil
}

// Save rewrites the whole file, one line per product ordered by key.
func (s *Store) Save(products map[string]domain.Product) error {
	keys := make([]string, 0, len(products))
	for k := range products {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return fileio.WriteAtomic(s.path, func(w *bufio.Writer) error {
		for _, k := range keys {
			p := products[k]
			if _, err := fmt.Fprintf(w, "%s;%s;%d\n", p.Name, money.Format(p.Price), p.Stock); err != nil {
				return err
			}
		}
		return nil
	})
}

func parseLine(line string) (domain.Product, bool) {
	if strings.TrimSpace(line) == "" {
		return domain.Product{}, false
	}
	fields := strings.Split(line, ";")

	name := strings.TrimSpace(fields[0])
	if name == "" {
		return domain.Product{}, false
	}

	p := domain.Product{Name: name}
	if len(fields) > 1 {
		p.Price = money.Parse(fields[1])
	}
	if len(fields) > 2 {
		p.Stock = parseInt(fields[2])
	}
	return p, true
}

func parseInt(s string) int {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
