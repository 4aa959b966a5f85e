package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/order-management-api/internal/storage/memory"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_Merge(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", `[
		{"productId": 2, "name": "Jeans", "price": 50, "quantity": 50},
		{"productId": 1, "name": "T-Shirt", "price": 25, "quantity": 100}
	]`)
	extra := writeFile(t, dir, "extra.json", `[
		{"productId": 2, "name": "Slim Jeans", "price": 55, "quantity": 10},
		{"productId": 9, "name": "Belt", "price": 9.99, "quantity": 3}
	]`)
	out := filepath.Join(dir, "catalog.json.gz")

	n, err := run(context.Background(), out, []string{base, extra})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	products, err := memory.LoadCatalog(out)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []int{1, 2, 9}, []int{products[0].ID, products[1].ID, products[2].ID})
	assert.Equal(t, "Slim Jeans", products[1].Name)
	assert.Equal(t, 10, products[1].Quantity)
}

func TestRun_Defaults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "catalog.json")

	n, err := run(context.Background(), out, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	products, err := memory.LoadCatalog(out)
	require.NoError(t, err)
	assert.Equal(t, "Hat", products[4].Name)
}

func TestRun_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.json", `[{"productId": 3, "name": "Jacket", "price": -1, "quantity": 1}]`)

	_, err := run(context.Background(), filepath.Join(dir, "out.json"), []string{bad})
	require.Error(t, err)

	_, err = run(context.Background(), filepath.Join(dir, "out.json"), []string{filepath.Join(dir, "missing.json")})
	require.Error(t, err)
}
