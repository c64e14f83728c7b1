package main

import (
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash)
	_, err := p.ParseArgs([]string{"--openai.token=test-token"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", opts.Server.ListenAddr)
	assert.Equal(t, "", opts.Server.AuthPasswd)
	assert.Equal(t, "text-embedding-3-small", opts.OpenAI.Model)
	assert.Equal(t, 0.72, opts.Detect.Threshold)
	assert.Equal(t, 200, opts.Detect.MaxTokens)
	assert.Equal(t, 10, opts.Detect.MaxVariants)
	assert.Equal(t, 20, opts.Queue.MaxPerClient)
	assert.Equal(t, 10000, opts.Queue.MaxClients)
	assert.Equal(t, "wzdetect.db", opts.DB)
	assert.Equal(t, "100M", opts.Logger.MaxSize)
	assert.False(t, opts.Dbg)
}

func TestOptionsTokenRequired(t *testing.T) {
	var opts options
	p := flags.NewParser(&opts, flags.PassDoubleDash)
	_, err := p.ParseArgs([]string{})
	assert.Error(t, err, "openai token is mandatory")
}

func TestMakeDetectionLogWriter(t *testing.T) {
	t.Run("disabled logger discards", func(t *testing.T) {
		var opts options
		opts.Logger.Enabled = false
		wr, err := makeDetectionLogWriter(opts)
		require.NoError(t, err)
		defer wr.Close()

		_, ok := wr.(nopWriteCloser)
		assert.True(t, ok)
		n, err := wr.Write([]byte("something"))
		require.NoError(t, err)
		assert.Equal(t, 9, n)
	})

	t.Run("enabled logger rotates", func(t *testing.T) {
		var opts options
		opts.Logger.Enabled = true
		opts.Logger.FileName = filepath.Join(t.TempDir(), "detections.log")
		opts.Logger.MaxSize = "1M"
		opts.Logger.MaxBackups = 5

		wr, err := makeDetectionLogWriter(opts)
		require.NoError(t, err)
		defer wr.Close()

		lj, ok := wr.(*lumberjack.Logger)
		require.True(t, ok)
		assert.Equal(t, opts.Logger.FileName, lj.Filename)
		assert.Equal(t, 1, lj.MaxSize)
		assert.Equal(t, 5, lj.MaxBackups)
		assert.True(t, lj.Compress)
	})

	t.Run("size suffixes", func(t *testing.T) {
		tbl := []struct {
			size    string
			mb      int
			failure bool
		}{
			{"100M", 100, false},
			{"1G", 1024, false},
			{"2g", 2048, false},
			{"10485760", 10, false},
			{"", 0, true},
			{"10X", 0, true},
			{"garbage", 0, true},
		}
		for _, tt := range tbl {
			t.Run(tt.size, func(t *testing.T) {
				var opts options
				opts.Logger.Enabled = true
				opts.Logger.FileName = filepath.Join(t.TempDir(), "detections.log")
				opts.Logger.MaxSize = tt.size

				wr, err := makeDetectionLogWriter(opts)
				if tt.failure {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)
				defer wr.Close()
				assert.Equal(t, tt.mb, wr.(*lumberjack.Logger).MaxSize)
			})
		}
	})
}
