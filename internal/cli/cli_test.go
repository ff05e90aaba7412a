package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func fileFlags(dir string) []string {
	return []string{
		"--store", "file",
		"--queue-file", filepath.Join(dir, "queue.json"),
		"--dead-letter-file", filepath.Join(dir, "dead.json"),
		"--log-level", "error",
	}
}

func TestParseItem(t *testing.T) {
	item, err := parseItem("Rice 5kg:5000:2")
	require.NoError(t, err)
	assert.Equal(t, "Rice 5kg", item.Name)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 2, item.Quantity)
	assert.Empty(t, item.ProductID)

	item, err = parseItem("Oil:1500.50:1:3f0c8a8e-8d7e-4a8f-9d7b-2d2b1c4e5f60")
	require.NoError(t, err)
	assert.Equal(t, "3f0c8a8e-8d7e-4a8f-9d7b-2d2b1c4e5f60", item.ProductID)

	for _, bad := range []string{"Rice", "Rice:abc:1", "Rice:10:x", "a:1:2:3:4"} {
		_, err := parseItem(bad)
		assert.Error(t, err, bad)
	}
}

func TestEnqueueThenStatus(t *testing.T) {
	dir := t.TempDir()
	args := append([]string{"enqueue", "--customer", "awa", "--item", "Rice:5000:2", "--paid", "4000"}, fileFlags(dir)...)

	out, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "saved offline (DEBT, 1 pending)")

	out, err = run(t, append([]string{"status"}, fileFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 pending, 0 dead letters")
	assert.Contains(t, out, "AWA")
	assert.Contains(t, out, "10000.00")
}

func TestEnqueueRejectsInvalidCart(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, append([]string{"enqueue", "--item", "Rice:5000:2"}, fileFlags(dir)...)...)
	assert.Error(t, err)

	out, err := run(t, append([]string{"status"}, fileFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "0 pending")
}

func TestClearNeedsConfirmation(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, append([]string{"enqueue", "--customer", "awa", "--item", "Rice:5000:2"}, fileFlags(dir)...)...)
	require.NoError(t, err)

	_, err = run(t, append([]string{"clear"}, fileFlags(dir)...)...)
	assert.Error(t, err)

	out, err := run(t, append([]string{"clear", "--yes"}, fileFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "1 sales dropped")
}

func TestSyncDrainsQueue(t *testing.T) {
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			InvoiceNumber string `json:"invoice_number"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received = append(received, body.InvoiceNumber)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success", "status_code": 201,
			"data": map[string]string{"id": "inv-" + body.InvoiceNumber, "status": "PAID"},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		_, err := run(t, append([]string{"enqueue", "--customer", "awa", "--item", "Rice:5000:1"}, fileFlags(dir)...)...)
		require.NoError(t, err)
	}

	out, err := run(t, append([]string{"sync", "--server", srv.URL, "--token", "t"}, fileFlags(dir)...)...)
	require.NoError(t, err)
	assert.Len(t, received, 2)
	assert.Contains(t, out, "2 synced, 0 pending, 0 dead letters")

	out, err = run(t, append([]string{"sync", "--server", srv.URL}, fileFlags(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to synchronize")
	assert.Len(t, received, 2)
}
