// package codec serializes request payloads according to the body-encoding
// mode a builder is in.
package codec

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/frankli0324/go-wget/internal/query"
)

type Mode int

const (
	Form Mode = iota // the default, application/x-www-form-urlencoded
	JSON
	XML
	Multipart
)

func (m Mode) ContentType() string {
	switch m {
	case JSON:
		return "application/json"
	case XML:
		return "application/xml"
	case Multipart:
		return "multipart/form-data"
	default:
		return "application/x-www-form-urlencoded"
	}
}

func (m Mode) String() string {
	switch m {
	case JSON:
		return "json"
	case XML:
		return "xml"
	case Multipart:
		return "multipart-form-data"
	default:
		return "x-www-form-urlencoded"
	}
}

// File is a multipart file field.
type File struct {
	Name        string // file name reported to the server
	ContentType string // defaults to application/octet-stream
	Content     []byte
}

// Body is a serialized payload. ContentType is set only when the encoding
// needs to replace the mode's Content-Type, as multipart does to carry its
// boundary.
type Body struct {
	Data        []byte
	ContentType string
}

// Encode serializes data for mode. Empty payloads (nil, "", empty slices
// and maps) produce a nil Body. Strings, byte slices and readers are sent
// as-is whatever the mode.
func Encode(mode Mode, data interface{}) (*Body, error) {
	if isEmpty(data) {
		return nil, nil
	}
	switch d := data.(type) {
	case string:
		return &Body{Data: []byte(d)}, nil
	case []byte:
		return &Body{Data: d}, nil
	case io.Reader:
		b, err := io.ReadAll(d)
		if err != nil {
			return nil, fmt.Errorf("codec: read body: %w", err)
		}
		return &Body{Data: b}, nil
	}

	switch mode {
	case JSON:
		b, err := sonic.ConfigStd.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("codec: encode json: %w", err)
		}
		return &Body{Data: b}, nil
	case XML:
		b, err := xml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("codec: encode xml: %w", err)
		}
		return &Body{Data: b}, nil
	case Multipart:
		return encodeMultipart(data)
	default:
		s, err := EncodeForm(data)
		if err != nil {
			return nil, err
		}
		return &Body{Data: []byte(s)}, nil
	}
}

// EncodeForm renders data as application/x-www-form-urlencoded.
// url.Values style inputs repeat keys; nested map[string]interface{}
// values use bracket notation: a[0]=x&a[k]=y.
func EncodeForm(data interface{}) (string, error) {
	switch d := data.(type) {
	case url.Values:
		return d.Encode(), nil
	case map[string][]string:
		return url.Values(d).Encode(), nil
	case map[string]string:
		v := make(url.Values, len(d))
		for k, s := range d {
			v.Set(k, s)
		}
		return v.Encode(), nil
	case map[string]interface{}:
		var pairs []string
		if err := flatten(&pairs, "", d); err != nil {
			return "", err
		}
		return strings.Join(pairs, "&"), nil
	}
	return "", fmt.Errorf("codec: cannot form-encode %T", data)
}

func flatten(pairs *[]string, prefix string, v interface{}) error {
	name := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "[" + k + "]"
	}
	switch v := v.(type) {
	case nil:
		// dropped, like an unset field
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := flatten(pairs, name(k), v[k]); err != nil {
				return err
			}
		}
	case map[string]string:
		m := make(map[string]interface{}, len(v))
		for k, s := range v {
			m[k] = s
		}
		return flatten(pairs, prefix, m)
	case bool:
		s := "0"
		if v {
			s = "1"
		}
		*pairs = append(*pairs, url.QueryEscape(prefix)+"="+s)
	default:
		if elems, ok := query.Elements(v); ok {
			for i, e := range elems {
				if err := flatten(pairs, name(fmt.Sprint(i)), e); err != nil {
					return err
				}
			}
			return nil
		}
		s, ok := query.Scalar(v)
		if !ok {
			return fmt.Errorf("codec: cannot form-encode %T at %q", v, prefix)
		}
		*pairs = append(*pairs, url.QueryEscape(prefix)+"="+url.QueryEscape(s))
	}
	return nil
}

func encodeMultipart(data interface{}) (*Body, error) {
	fields := map[string]interface{}{}
	switch d := data.(type) {
	case map[string]interface{}:
		fields = d
	case map[string]string:
		for k, v := range d {
			fields[k] = v
		}
	case url.Values:
		for k, v := range d {
			fields[k] = v
		}
	case map[string][]string:
		for k, v := range d {
			fields[k] = v
		}
	default:
		return nil, fmt.Errorf("codec: cannot multipart-encode %T", data)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, k := range keys {
		if err := writePart(w, k, fields[k]); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: close multipart: %w", err)
	}
	return &Body{Data: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func writePart(w *multipart.Writer, k string, v interface{}) error {
	switch v := v.(type) {
	case File:
		return writeFile(w, k, &v)
	case *File:
		return writeFile(w, k, v)
	case nil:
		return nil
	}
	if elems, ok := query.Elements(v); ok {
		for _, e := range elems {
			if err := writePart(w, k, e); err != nil {
				return err
			}
		}
		return nil
	}
	s, ok := query.Scalar(v)
	if !ok {
		return fmt.Errorf("codec: cannot multipart-encode %T at %q", v, k)
	}
	return w.WriteField(k, s)
}

func writeFile(w *multipart.Writer, k string, f *File) error {
	ct := f.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(k), escapeQuotes(f.Name))}
	h["Content-Type"] = []string{ct}
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(f.Content)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func isEmpty(data interface{}) bool {
	if data == nil {
		return true
	}
	v := reflect.ValueOf(data)
	switch v.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	}
	return false
}
