package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
	Tags  []int  `json:"tags"`
}

func TestNew(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "application/json", s.ContentType())

	s, err = New(NameMsgpack)
	require.NoError(t, err)
	assert.Equal(t, "application/msgpack", s.ContentType())

	_, err = New("xml")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	in := payload{Name: "summon", Value: 42, Tags: []int{1, 2}}
	for _, name := range []string{NameJSON, NameMsgpack} {
		t.Run(name, func(t *testing.T) {
			s, err := New(name)
			require.NoError(t, err)

			data, err := s.Serialize(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, s.Deserialize(data, &out))
			assert.Equal(t, in, out)
		})
	}
}
