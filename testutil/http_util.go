package testutil

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func Unmarshal(res *http.Response, v interface{}, t *testing.T) {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}
	err = json.Unmarshal(body, v)
	if err != nil {
		t.Fatalf("failed to unmarshal body [%s]: %v", string(body), err)
	}
}

type RequestOptions struct {
	Username string
	Password string
}

func Get(url string, t *testing.T, op ...RequestOptions) *http.Response {
	return SendRequest(http.MethodGet, url, nil, t, op...)
}

func Put(url string, request interface{}, t *testing.T, op ...RequestOptions) *http.Response {
	return SendRequest(http.MethodPut, url, request, t, op...)
}

func Post(url string, request interface{}, t *testing.T, op ...RequestOptions) *http.Response {
	return SendRequest(http.MethodPost, url, request, t, op...)
}

func SendRequest(method, url string, request interface{}, t *testing.T, op ...RequestOptions) *http.Response {
	t.Helper()

	var body io.Reader
	if request != nil {
		b, err := json.Marshal(request)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}

	if len(op) > 0 {
		req.SetBasicAuth(op[0].Username, op[0].Password)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return res
}

// WsConn is a client websocket connection. Frames the server wrote together with the upgrade response are read
// before anything else on the socket.
type WsConn struct {
	net.Conn
	br *bufio.Reader
	r  io.Reader
}

func (c *WsConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *WsConn) Close() error {
	if c.br != nil {
		ws.PutReader(c.br)
		c.br = nil
	}
	return c.Conn.Close()
}

func DialWs(url string, t *testing.T) *WsConn {
	t.Helper()
	conn, br, _, err := ws.DefaultDialer.Dial(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}

	c := &WsConn{Conn: conn, r: conn}
	if br != nil {
		c.br = br
		c.r = io.MultiReader(br, conn)
	}
	return c
}

func ReadWs(conn io.ReadWriter, v interface{}, t *testing.T) {
	t.Helper()
	msg, _, err := wsutil.ReadServerData(conn)
	if err != nil {
		t.Fatal(err)
	}

	err = json.Unmarshal(msg, v)
	if err != nil {
		t.Fatal(err)
	}
}
