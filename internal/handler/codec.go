package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	ogenjson "github.com/ogen-go/ogen/json"
	"github.com/ogen-go/ogen/validate"
	"github.com/shopspring/decimal"

	"github.com/xenking/order-management-api/internal/domain/order"
	"github.com/xenking/order-management-api/internal/domain/product"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// orderRequest is the decoded body of create and update requests.
type orderRequest struct {
	OrderDate time.Time
	Items     []order.ItemRequest
}

// decodeOrderRequest decodes {"orderDate"?, "orderItems": [...]}. Missing
// required item fields are collected into a single *validate.Error. The
// object must be the whole body; anything but whitespace after it is an error.
func decodeOrderRequest(data []byte) (orderRequest, error) {
	d := jx.DecodeBytes(data)
	var (
		req      orderRequest
		failures []validate.FieldError
	)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "orderDate":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := ogenjson.DecodeDateTime(d)
			if err != nil {
				return errors.Wrap(err, "decode field \"orderDate\"")
			}
			req.OrderDate = v
		case "orderItems":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				item, missing, err := decodeItemRequest(d)
				if err != nil {
					return errors.Wrapf(err, "decode orderItems[%d]", len(req.Items))
				}
				for _, name := range missing {
					failures = append(failures, validate.FieldError{
						Name:  fieldPath(len(req.Items), name),
						Error: validate.ErrFieldRequired,
					})
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return orderRequest{}, err
	}
	if !jx.Valid(data) {
		return orderRequest{}, errors.New("unexpected data after order object")
	}
	if len(failures) > 0 {
		return orderRequest{}, &validate.Error{Fields: failures}
	}
	return req, nil
}

func decodeItemRequest(d *jx.Decoder) (item order.ItemRequest, missing []string, _ error) {
	var hasProduct, hasQuantity bool
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "orderItemId":
			if d.Next() == jx.Null {
				return d.Null()
			}
			item.OrderItemID, err = d.Int()
		case "productId":
			hasProduct = true
			item.ProductID, err = d.Int()
		case "quantity":
			hasQuantity = true
			item.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode field %q", key)
		}
		return nil
	})
	if !hasProduct {
		missing = append(missing, "productId")
	}
	if !hasQuantity {
		missing = append(missing, "quantity")
	}
	return item, missing, err
}

func fieldPath(i int, name string) string {
	return "orderItems[" + strconv.Itoa(i) + "]." + name
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Int(o.ID)
	e.FieldStart("orderDate")
	ogenjson.EncodeDateTime(e, o.OrderDate)
	e.FieldStart("totalAmount")
	encodeMoney(e, o.TotalAmount)
	e.FieldStart("orderItems")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("orderItemId")
		e.Int(it.ID)
		e.FieldStart("productId")
		e.Int(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		encodeMoney(e, it.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Int(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	encodeMoney(e, p.Price)
	e.FieldStart("quantity")
	e.Int(p.Quantity)
	e.ObjEnd()
}

// encodeMoney writes d as a JSON number with at least two decimal places.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	places := max(int32(2), -d.Exponent())
	e.Num(jx.Num(d.StringFixed(places)))
}

func encodeError(e *jx.Encoder, code int, message string) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
}

// writeJSON encodes a response body with fn and writes it with status.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// WriteError writes the uniform {"code", "message"} error envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeError(e, status, message)
	})
}
