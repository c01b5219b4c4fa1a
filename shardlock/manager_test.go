package shardlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyPrefix(t *testing.T) {
	cases := []struct {
		root, cluster string
		want string
		wantErr bool
	}{
		{root: "/ceresdb", cluster: "defaultCluster", want: "/ceresdb/defaultCluster/shards"},
		{root: "", cluster: "x", wantErr: true},
		{root: "vvv", cluster: "x", wantErr: true},
		{root: "/x", cluster: "", wantErr: true},
	}
	for _, c := range cases {
		got, err := KeyPrefix(c.root, c.cluster)
		if c.wantErr {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}
