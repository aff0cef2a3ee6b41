package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainResolver(t *testing.T) {
	failing := ResolverFunc(func(ctx context.Context, host, sid string) string { return Untranslatable })
	empty := ResolverFunc(func(ctx context.Context, host, sid string) string { return "" })
	static := StaticResolver{"S-1-5-21-9-1001": `CORP\alice`}

	chain := ChainResolver{nil, failing, empty, static}

	assert.Equal(t, `CORP\alice`, chain.Resolve(context.Background(), "WS01", "S-1-5-21-9-1001"))
	assert.Equal(t, Untranslatable, chain.Resolve(context.Background(), "WS01", "S-1-5-21-9-1002"))
	assert.Equal(t, Untranslatable, ChainResolver{}.Resolve(context.Background(), "WS01", "S-1"))
}

func TestStaticResolver_BlankLabel(t *testing.T) {
	r := StaticResolver{"S-1": "   "}
	assert.Equal(t, Untranslatable, r.Resolve(context.Background(), "", "S-1"))
}

func TestAccountLabel(t *testing.T) {
	tests := []struct {
		name      string
		resolved  string
		localPath string
		sid       string
		want      string
	}{
		{name: "resolved wins", resolved: `CORP\bob`, localPath: `C:\Users\bob`, sid: "S-1", want: `CORP\bob`},
		{name: "untranslatable falls back to leaf", resolved: Untranslatable, localPath: `C:\Users\bob.CORP`, sid: "S-1", want: "bob.CORP"},
		{name: "trailing separator", resolved: "", localPath: `C:\Users\carol\`, sid: "S-1", want: "carol"},
		{name: "forward slashes", resolved: "", localPath: "C:/Users/dave", sid: "S-1", want: "dave"},
		{name: "no path falls back to sid", resolved: "", localPath: "", sid: "S-1-5-21-1", want: "S-1-5-21-1"},
		{name: "drive root is not a leaf", resolved: "", localPath: `C:\`, sid: "S-1", want: "S-1"},
		{name: "nothing at all", want: Untranslatable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AccountLabel(tt.resolved, tt.localPath, tt.sid)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestUnderRoot(t *testing.T) {
	tests := []struct {
		path string
		root string
		want bool
	}{
		{path: `C:\Users\alice`, root: `C:\Users`, want: true},
		{path: `c:\users\alice`, root: `C:\Users\`, want: true},
		{path: `C:/Users/alice`, root: `C:\Users`, want: true},
		{path: `C:\Users`, root: `C:\Users`, want: false},
		{path: `C:\UsersOld\alice`, root: `C:\Users`, want: false},
		{path: `C:\Windows\ServiceProfiles\LocalService`, root: `C:\Users`, want: false},
		{path: `D:\Users\alice`, root: `C:\Users`, want: false},
		{path: "", root: `C:\Users`, want: false},
		{path: `C:\Users\alice`, root: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path+"|"+tt.root, func(t *testing.T) {
			assert.Equal(t, tt.want, UnderRoot(tt.path, tt.root))
		})
	}
}
