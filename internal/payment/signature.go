package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// sign computes the hex HMAC-SHA256 of the canonical form of fields:
// keys sorted, joined as k=v with '&'.
func sign(key string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook checks signature against the raw data object of a gateway
// callback.  Scalar values are rendered the way the gateway renders them;
// null becomes the empty string.
func VerifyWebhook(key string, data json.RawMessage, signature string) error {
	var obj map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return fmt.Errorf("webhook data: %w", err)
	}
	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = x
		case json.Number:
			fields[k] = x.String()
		case bool:
			fields[k] = fmt.Sprint(x)
		default:
			raw, _ := json.Marshal(x)
			fields[k] = string(raw)
		}
	}
	want := sign(key, fields)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	return nil
}
