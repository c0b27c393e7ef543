package diag_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	_ "github.com/and161185/ncp-diag/internal/diag"
	"github.com/and161185/ncp-diag/internal/diag/testutils"
	"github.com/and161185/ncp-diag/model"
)

func ExampleServer_CountersHandler() {
	srv := testutils.NewTestServer(&testutils.StubQuerier{
		Record: model.CounterRecord{"TxTotal": "1126"},
	})

	w := httptest.NewRecorder()
	srv.CountersHandler(w, httptest.NewRequest(http.MethodGet, "/counters", nil))

	fmt.Println(w.Code)
	fmt.Print(w.Body.String())
	// Output:
	// 200
	// {"TxTotal":"1126"}
}

func ExampleServer_PingHandler() {
	srv := testutils.NewTestServer(&testutils.StubQuerier{})

	w := httptest.NewRecorder()
	srv.PingHandler(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	fmt.Println(w.Body.String())
	// Output: pong
}
