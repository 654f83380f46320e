package transport_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/luma/humlsp/client"
	"github.com/luma/humlsp/protocol"
	"github.com/luma/humlsp/session"
	"github.com/luma/humlsp/transport"
)

const fileURI = "file:///work/config.huml"

func frame(body string) []byte {
	return protocol.Frame([]byte(body))
}

func input(bodies ...string) *bytes.Reader {
	var buf bytes.Buffer
	for _, body := range bodies {
		buf.Write(frame(body))
	}
	return bytes.NewReader(buf.Bytes())
}

func openParams(text string) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{
			"uri":        fileURI,
			"languageId": "huml",
			"version":    1,
			"text":       text,
		},
	}
}

func changeParams(version int, line, start, end uint32, text string) map[string]interface{} {
	return map[string]interface{}{
		"textDocument": map[string]interface{}{"uri": fileURI, "version": version},
		"contentChanges": []map[string]interface{}{{
			"range": lsp.Range{
				Start: lsp.Position{Line: line, Character: start},
				End:   lsp.Position{Line: line, Character: end},
			},
			"text": text,
		}},
	}
}

var _ = Describe("Conn", func() {
	options := transport.Options{
		ServerInfo: lsp.ServerInfo{Name: "humlsp", Version: "test"},
		QueueSize:  8,
		Log:        zap.NewNop(),
	}

	Describe("over buffered streams", func() {
		It("runs a full session and exits", func() {
			in := input(
				`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"capabilities":{}}}`,
				`{"jsonrpc":"2.0","method":"initialized","params":{}}`,
				`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///work/config.huml","languageId":"huml","version":1,"text":"key: 1"}}}`,
				`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
				`{"jsonrpc":"2.0","method":"exit"}`,
			)
			out := bytes.NewBuffer([]byte{})

			conn := transport.NewConn(in, out, options)
			Expect(conn.Serve(context.Background())).To(MatchError(session.ErrExit))
			Expect(conn.Close()).To(Succeed())

			written := frames(out.Bytes())
			Expect(written).To(HaveLen(2))
			Expect(written[0].Get("id").Int()).To(Equal(int64(1)))
			Expect(written[0].Get("result.capabilities.textDocumentSync.change").Int()).To(Equal(int64(2)))
			Expect(written[1].Get("id").Int()).To(Equal(int64(2)))
			Expect(written[1].Get("result").Type).To(Equal(gjson.Null))

			Expect(conn.Session().State()).To(Equal(session.Shutdown))
		})

		It("answers requests in the order they arrive", func() {
			in := input(
				`{"jsonrpc":"2.0","id":"a","method":"textDocument/hover"}`,
				`{"jsonrpc":"2.0","id":"b","method":"initialize","params":{"capabilities":{}}}`,
				`{"jsonrpc":"2.0","id":"c","method":"textDocument/hover"}`,
				`{"jsonrpc":"2.0","method":"exit"}`,
			)
			out := bytes.NewBuffer([]byte{})

			conn := transport.NewConn(in, out, options)
			Expect(conn.Serve(context.Background())).To(MatchError(session.ErrExit))
			Expect(conn.Close()).To(Succeed())

			written := frames(out.Bytes())
			Expect(written).To(HaveLen(3))
			Expect(written[0].Get("id").String()).To(Equal("a"))
			Expect(written[0].Get("error.code").Int()).To(Equal(protocol.CodeServerNotInitialized))
			Expect(written[1].Get("id").String()).To(Equal("b"))
			Expect(written[2].Get("id").String()).To(Equal("c"))
			Expect(written[2].Get("error.code").Int()).To(Equal(protocol.CodeMethodNotFound))
		})

		It("reports a closed stream", func() {
			conn := transport.NewConn(input(`{"jsonrpc":"2.0","method":"initialized"}`), bytes.NewBuffer([]byte{}), options)
			Expect(conn.Serve(context.Background())).To(MatchError(transport.ErrStreamClosed))
		})

		It("stops when framing is lost", func() {
			data := append(frame(`{"jsonrpc":"2.0","method":"$/cancelRequest"}`), []byte("Content-Type: text/plain\r\n\r\n{}")...)

			conn := transport.NewConn(bytes.NewReader(data), bytes.NewBuffer([]byte{}), options)
			err := conn.Serve(context.Background())
			Expect(errors.Is(err, protocol.ErrInvalidHeader)).To(BeTrue())
		})

		It("stops on messages larger than the limit", func() {
			limited := options
			limited.MaxContentLength = 16

			conn := transport.NewConn(input(`{"jsonrpc":"2.0","method":"initialized"}`), bytes.NewBuffer([]byte{}), limited)
			err := conn.Serve(context.Background())
			Expect(errors.Is(err, protocol.ErrFrameTooLarge)).To(BeTrue())
		})

		It("reports a stream cut off inside a frame", func() {
			data := frame(`{"jsonrpc":"2.0","method":"initialized"}`)

			conn := transport.NewConn(bytes.NewReader(data[:len(data)-3]), bytes.NewBuffer([]byte{}), options)
			err := conn.Serve(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err).NotTo(MatchError(transport.ErrStreamClosed))
		})

		It("keeps going after a violation", func() {
			in := input(
				`{"jsonrpc":"2.0","method":"textDocument/didOpen","params":{"textDocument":{"uri":"file:///a","languageId":"huml","version":1,"text":""}}}`,
				`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"capabilities":{}}}`,
				`{"jsonrpc":"2.0","method":"exit"}`,
			)

			conn := transport.NewConn(in, bytes.NewBuffer([]byte{}), options)
			Expect(conn.Serve(context.Background())).To(MatchError(session.ErrExit))
			Expect(conn.Session().State()).To(Equal(session.Initialized))
			Expect(conn.Close()).To(Succeed())
		})

		It("stops on a violation when strict", func() {
			strict := options
			strict.Strict = true

			in := input(
				`{"jsonrpc":"2.0","method":"initialized","params":{}}`,
				`{"jsonrpc":"2.0","method":"exit"}`,
			)

			conn := transport.NewConn(in, bytes.NewBuffer([]byte{}), strict)
			err := conn.Serve(context.Background())

			var violation *session.ViolationError
			Expect(errors.As(err, &violation)).To(BeTrue())
			Expect(violation.Method).To(Equal("initialized"))
		})

		It("stops when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			conn := transport.NewConn(input(`{"jsonrpc":"2.0","method":"initialized"}`), bytes.NewBuffer([]byte{}), options)
			Expect(conn.Serve(ctx)).To(MatchError(context.Canceled))
		})
	})

	Describe("over a socket", func() {
		It("closes cleanly after an interrupt already closed the socket", func() {
			listener, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).To(Succeed())
			defer listener.Close()

			dialed := make(chan net.Conn, 1)
			go func() {
				defer GinkgoRecover()

				c, err := net.Dial("tcp", listener.Addr().String())
				Expect(err).To(Succeed())
				dialed <- c
			}()

			server, err := listener.Accept()
			Expect(err).To(Succeed())

			var peer net.Conn
			Eventually(dialed).Should(Receive(&peer))
			defer peer.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			Expect(server.Close()).To(Succeed())

			conn := transport.NewConn(server, server, options)
			Expect(conn.Serve(ctx)).To(MatchError(context.Canceled))
			Expect(conn.Close()).To(Succeed())
		})
	})

	Describe("with a client", func() {
		var (
			conn    *transport.Conn
			lc      *client.Conn
			served  chan error
			ctx     context.Context
			cancel  context.CancelFunc
			traceOn bool
		)

		BeforeEach(func() {
			traceOn = false
			ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)

			serverSide, clientSide := net.Pipe()

			conn = transport.NewConn(serverSide, serverSide, options)
			lc = client.New(clientSide, zap.NewNop())

			served = make(chan error, 1)
			go func() {
				served <- conn.Serve(ctx)
			}()
		})

		AfterEach(func() {
			lc.Close()
			Eventually(served).Should(Receive())
			conn.Close()
			cancel()
		})

		initialize := func() {
			resp, err := lc.Initialize(ctx, "test-client")
			Expect(err).To(Succeed())
			Expect(gjson.GetBytes(resp.Result, "serverInfo.name").String()).To(Equal("humlsp"))

			if traceOn {
				Expect(lc.Notify("$/setTrace", map[string]string{"value": "verbose"})).To(Succeed())
			}
		}

		It("syncs documents and exits cleanly", func() {
			initialize()

			Expect(lc.Notify("textDocument/didOpen", openParams("Hello, I'm developer.\nI like to code.\ni work at Torchwood."))).To(Succeed())
			Expect(lc.Notify("textDocument/didChange", changeParams(2, 2, 10, 20, "Regolith."))).To(Succeed())
			Expect(lc.Notify("textDocument/didChange", changeParams(3, 0, 0, 0, "Hi "))).To(Succeed())

			Expect(lc.Shutdown(ctx)).To(Succeed())
			Expect(lc.Exit()).To(Succeed())

			var err error
			Eventually(served).Should(Receive(&err))
			Expect(err).To(MatchError(session.ErrExit))

			// Serve has returned, the session is ours to read
			served <- err

			Expect(conn.Session().State()).To(Equal(session.Shutdown))
		})

		It("keeps documents in sync while initialized", func() {
			initialize()

			Expect(lc.Notify("textDocument/didOpen", openParams("key: 1"))).To(Succeed())
			Expect(lc.Notify("textDocument/didChange", changeParams(2, 0, 5, 6, "2"))).To(Succeed())
			Expect(lc.Exit()).To(Succeed())

			var err error
			Eventually(served).Should(Receive(&err))
			served <- err

			doc, ok := conn.Session().Document(uri.URI(fileURI))
			Expect(ok).To(BeTrue())
			Expect(doc.Text()).To(Equal("key: 2"))
			Expect(doc.Version()).To(Equal(int32(2)))
		})

		It("sends trace notifications", func() {
			traceOn = true
			initialize()

			Expect(lc.Notify("textDocument/didOpen", openParams("key: 1"))).To(Succeed())

			var n *protocol.Notification
			Eventually(lc.Notifications()).Should(Receive(&n))
			Expect(n.Method).To(Equal(session.MethodLogTrace))
			Expect(gjson.GetBytes(n.Params, "message").String()).To(Equal("Received notification 'textDocument/didOpen'."))
			Expect(gjson.GetBytes(n.Params, "verbose").String()).To(ContainSubstring(fileURI))
		})

		It("tells the client when a document is out of sync", func() {
			initialize()

			Expect(lc.Notify("textDocument/didOpen", openParams("key: 1"))).To(Succeed())
			Expect(lc.Notify("textDocument/didChange", changeParams(2, 9, 0, 1, "x"))).To(Succeed())

			var n *protocol.Notification
			Eventually(lc.Notifications()).Should(Receive(&n))
			Expect(n.Method).To(Equal(session.MethodLogMessage))
			Expect(gjson.GetBytes(n.Params, "message").String()).To(ContainSubstring("out of sync"))

			resp, err := lc.Call(ctx, "textDocument/hover", map[string]interface{}{})
			Expect(err).To(Succeed())
			Expect(resp.Error.Code).To(Equal(protocol.CodeMethodNotFound))
		})

		It("keeps serving after malformed messages", func() {
			Expect(lc.WriteRaw([]byte(`{"jsonrpc":"2.0","id":1,"method":`))).To(Succeed())
			Expect(lc.WriteRaw([]byte(fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"shutdown"}`, 99)))).To(Succeed())

			resp, err := lc.Call(ctx, "initialize", map[string]interface{}{"capabilities": map[string]interface{}{}})
			Expect(err).To(Succeed())
			Expect(resp.Error).To(BeNil())
		})

		It("reports a client that goes away", func() {
			initialize()
			Expect(lc.Close()).To(Succeed())

			var err error
			Eventually(served).Should(Receive(&err))
			Expect(err).To(HaveOccurred())
			served <- err
		})
	})
})
