package excel

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	codec := NewCodec()

	rows := [][]string{
		{"姓名", "部门", "年龄"},
		{"张三", "技术部", "28"},
		{"李四", "市场部", "35"},
	}
	require.NoError(t, codec.WriteRows(path, rows))

	got, err := codec.ReadRows(path, 0)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadRowsSkipsBanner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banner.xlsx")
	codec := NewCodec()

	require.NoError(t, codec.WriteRows(path, [][]string{
		{"2025年度人员信息收集表"},
		{"姓名", "部门"},
		{"张三", "技术部"},
	}))

	got, err := codec.ReadRows(path, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"姓名", "部门"}, got[0])
}

func TestReadRowsHeaderBeyondData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.xlsx")
	codec := NewCodec()

	require.NoError(t, codec.WriteRows(path, [][]string{{"仅一行"}}))

	got, err := codec.ReadRows(path, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
