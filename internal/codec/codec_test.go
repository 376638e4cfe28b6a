package codec

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/crane-service-go/internal/errors"
)

func TestEncode_Initialize(t *testing.T) {
	data, err := Encode(&Request{
		Method: MethodInitialize,
		Params: InitializeParams{ModelPath: "/m"},
	})
	require.NoError(t, err)
	require.Equal(t, `{"method":"initialize","params":{"model_path":"/m"}}`+"\n", string(data))
}

func TestEncode_ListModelsEmptyObject(t *testing.T) {
	data, err := Encode(&Request{Method: MethodListModels, Params: ListModelsParams{}})
	require.NoError(t, err)
	require.Equal(t, `{"method":"list_models","params":{}}`+"\n", string(data))
}

func TestEncode_ChatOmitsUnsetOptions(t *testing.T) {
	data, err := Encode(&Request{
		Method: MethodChat,
		Params: ChatRequest{
			Model:    "qwen",
			Messages: []ChatMessage{{Role: RoleUser, Content: "<hi> & bye"}},
		},
	})
	require.NoError(t, err)
	require.Equal(t,
		`{"method":"chat","params":{"model":"qwen","messages":[{"role":"user","content":"<hi> & bye"}]}}`+"\n",
		string(data),
	)
}

func TestEncode_WithID(t *testing.T) {
	id := uint64(7)

	data, err := Encode(&Request{ID: &id, Method: MethodListModels, Params: ListModelsParams{}})
	require.NoError(t, err)
	require.Equal(t, `{"id":7,"method":"list_models","params":{}}`+"\n", string(data))
}

func TestParse(t *testing.T) {
	t.Run("result", func(t *testing.T) {
		resp, err := Parse([]byte(`{"result":{"status":"initialized"}}`))
		require.NoError(t, err)
		require.False(t, resp.IsError())
		require.JSONEq(t, `{"status":"initialized"}`, string(resp.Result))
		require.Nil(t, resp.ID)
	})

	t.Run("error string", func(t *testing.T) {
		resp, err := Parse([]byte(`{"error":"Model not initialized"}`))
		require.NoError(t, err)
		require.True(t, resp.IsError())
		require.Equal(t, "Model not initialized", resp.Error)
	})

	t.Run("null error is success", func(t *testing.T) {
		resp, err := Parse([]byte(`{"result":true,"error":null}`))
		require.NoError(t, err)
		require.False(t, resp.IsError())
	})

	t.Run("empty error is success", func(t *testing.T) {
		resp, err := Parse([]byte(`{"result":1,"error":""}`))
		require.NoError(t, err)
		require.False(t, resp.IsError())
	})

	t.Run("non-string error", func(t *testing.T) {
		resp, err := Parse([]byte(`{"error":{"code":42}}`))
		require.NoError(t, err)
		require.True(t, resp.IsError())
		require.JSONEq(t, `{"code":42}`, resp.Error)
	})

	t.Run("echoed id", func(t *testing.T) {
		resp, err := Parse([]byte(`{"id":3,"result":[]}`))
		require.NoError(t, err)
		require.NotNil(t, resp.ID)
		require.Equal(t, uint64(3), *resp.ID)
	})

	t.Run("surrounding whitespace", func(t *testing.T) {
		resp, err := Parse([]byte("  {\"result\":1}\r"))
		require.NoError(t, err)
		require.Equal(t, "1", string(resp.Result))
	})
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "truncated", line: `{"result":`},
		{name: "plain text", line: `Loading weights...`},
		{name: "array", line: `[1,2,3]`},
		{name: "string", line: `"hello"`},
		{name: "number", line: `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Parse([]byte(tt.line))
			require.Nil(t, resp)

			protoErr, ok := stderrors.AsType[*errors.ProtocolError](err)
			require.True(t, ok, "expected ProtocolError, got %T", err)
			require.Equal(t, tt.line, protoErr.RawData)
		})
	}
}

func TestDecoder_SplitAcrossChunks(t *testing.T) {
	dec := NewDecoder(0)

	lines, err := dec.Feed([]byte(`{"resu`))
	require.NoError(t, err)
	require.Empty(t, lines)
	require.Equal(t, 6, dec.Buffered())

	lines, err = dec.Feed([]byte(`lt":true}` + "\n"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, `{"result":true}`, string(lines[0]))
	require.Zero(t, dec.Buffered())
}

func TestDecoder_MultipleLinesPerChunk(t *testing.T) {
	dec := NewDecoder(0)

	lines, err := dec.Feed([]byte("{\"result\":1}\n{\"result\":2}\n{\"res"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, `{"result":1}`, string(lines[0]))
	require.Equal(t, `{"result":2}`, string(lines[1]))

	lines, err = dec.Feed([]byte("ult\":3}\n"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, `{"result":3}`, string(lines[0]))
}

func TestDecoder_SkipsBlankLines(t *testing.T) {
	dec := NewDecoder(0)

	lines, err := dec.Feed([]byte("\n\n   \n{\"result\":1}\n\r\n"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestDecoder_LinesAreIndependentCopies(t *testing.T) {
	dec := NewDecoder(0)
	chunk := []byte("{\"result\":1}\n")

	lines, err := dec.Feed(chunk)
	require.NoError(t, err)

	chunk[2] = 'X'
	require.Equal(t, `{"result":1}`, string(lines[0]))
}

func TestDecoder_ByteAtATime(t *testing.T) {
	dec := NewDecoder(0)
	input := "{\"result\":\"a\"}\n{\"error\":\"b\"}\n"

	var got []string

	for i := range len(input) {
		lines, err := dec.Feed([]byte{input[i]})
		require.NoError(t, err)

		for _, line := range lines {
			got = append(got, string(line))
		}
	}

	require.Equal(t, []string{`{"result":"a"}`, `{"error":"b"}`}, got)
}

func TestDecoder_Overflow(t *testing.T) {
	t.Run("single chunk", func(t *testing.T) {
		dec := NewDecoder(16)

		lines, err := dec.Feed([]byte(strings.Repeat("x", 40) + "\n{\"result\":1}\n"))
		require.ErrorIs(t, err, errors.ErrLineTooLong)
		require.Len(t, lines, 1)
		require.Equal(t, `{"result":1}`, string(lines[0]))
	})

	t.Run("across chunks", func(t *testing.T) {
		dec := NewDecoder(16)

		_, err := dec.Feed([]byte(strings.Repeat("x", 10)))
		require.NoError(t, err)

		_, err = dec.Feed([]byte(strings.Repeat("x", 10)))
		require.ErrorIs(t, err, errors.ErrLineTooLong)
		require.Zero(t, dec.Buffered())

		// The remainder of the oversized line is dropped silently.
		lines, err := dec.Feed([]byte(strings.Repeat("y", 100)))
		require.NoError(t, err)
		require.Empty(t, lines)

		lines, err = dec.Feed([]byte("tail\n{\"result\":2}\n"))
		require.NoError(t, err)
		require.Len(t, lines, 1)
		require.Equal(t, `{"result":2}`, string(lines[0]))
	})

	t.Run("is a protocol error", func(t *testing.T) {
		dec := NewDecoder(4)

		_, err := dec.Feed([]byte("toolong\n"))
		_, ok := stderrors.AsType[*errors.ProtocolError](err)
		require.True(t, ok)
	})
}

func TestValidate(t *testing.T) {
	temp := func(v float64) *float64 { return &v }
	tokens := func(v int) *int { return &v }

	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{name: "initialize ok", params: InitializeParams{ModelPath: "/models/qwen"}},
		{name: "initialize empty path", params: InitializeParams{}, wantErr: true},
		{name: "list models ok", params: ListModelsParams{}},
		{
			name: "chat ok",
			params: ChatRequest{
				Model:       "qwen",
				Messages:    []ChatMessage{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}},
				Temperature: temp(0.7),
				MaxTokens:   tokens(256),
			},
		},
		{name: "chat no messages", params: ChatRequest{Model: "qwen", Messages: []ChatMessage{}}, wantErr: true},
		{name: "chat nil messages", params: ChatRequest{Model: "qwen"}, wantErr: true},
		{
			name:    "chat bad role",
			params:  ChatRequest{Model: "qwen", Messages: []ChatMessage{{Role: "tool", Content: "x"}}},
			wantErr: true,
		},
		{
			name: "chat temperature too high",
			params: ChatRequest{
				Model:       "qwen",
				Messages:    []ChatMessage{{Role: RoleUser, Content: "hi"}},
				Temperature: temp(2.5),
			},
			wantErr: true,
		},
		{
			name: "chat zero max tokens",
			params: ChatRequest{
				Model:     "qwen",
				Messages:  []ChatMessage{{Role: RoleUser, Content: "hi"}},
				MaxTokens: tokens(0),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.params)
			if !tt.wantErr {
				require.NoError(t, err)

				return
			}

			validationErr, ok := stderrors.AsType[*errors.ValidationError](err)
			require.True(t, ok, "expected ValidationError, got %T: %v", err, err)
			require.Equal(t, tt.params.Method(), validationErr.Method)
		})
	}
}

func TestSchemaFor(t *testing.T) {
	require.NotNil(t, SchemaFor(MethodInitialize))
	require.NotNil(t, SchemaFor(MethodChat))
	require.NotNil(t, SchemaFor(MethodListModels))
	require.Nil(t, SchemaFor("shutdown"))
}
