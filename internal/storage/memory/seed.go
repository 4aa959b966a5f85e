package memory

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management-api/internal/domain/product"
)

// LoadCatalog reads catalog seed entries from a JSON file. Files ending in
// ".gz" are decompressed first. The expected layout is the product list
// served by GET /api/product:
//
//	[{"productId": 1, "name": "T-Shirt", "price": 25.00, "quantity": 100}]
func LoadCatalog(path string) ([]product.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "gzip reader")
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	products, err := DecodeCatalog(jx.Decode(r, 4096))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return products, nil
}

// DecodeCatalog decodes a JSON array of catalog entries.
func DecodeCatalog(d *jx.Decoder) ([]product.Product, error) {
	var products []product.Product
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "entry %d", len(products))
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, errors.New("catalog is empty")
	}
	return products, nil
}

// WriteCatalog writes products in the layout LoadCatalog reads. Output is
// gzip-compressed when gz is set.
func WriteCatalog(w io.Writer, products []product.Product, gz bool) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("price")
		e.Num(jx.Num(p.Price.String()))
		e.FieldStart("quantity")
		e.Int(p.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	if !gz {
		_, err := w.Write(e.Bytes())
		return errors.Wrap(err, "write catalog")
	}
	zw := pgzip.NewWriter(w)
	if _, err := zw.Write(e.Bytes()); err != nil {
		return errors.Wrap(err, "write catalog")
	}
	return errors.Wrap(zw.Close(), "flush gzip")
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "productId":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "productId")
			}
			p.ID = v
		case "name":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name = v
		case "price":
			v, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := decimal.NewFromString(string(v))
			if err != nil {
				return errors.Wrap(err, "price")
			}
			p.Price = price
		case "quantity":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "quantity")
			}
			p.Quantity = v
		default:
			return d.Skip()
		}
		return nil
	})
	return p, err
}
