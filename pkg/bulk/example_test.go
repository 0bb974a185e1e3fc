package bulk_test

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bft-labs/bulkship/internal/stubstore"
	"github.com/bft-labs/bulkship/pkg/bulk"
	"github.com/bft-labs/bulkship/pkg/log"
)

func Example() {
	gin.SetMode(gin.TestMode)
	store := httptest.NewServer(stubstore.NewServer(stubstore.NewStore(), log.NewNoopLogger()).Handler())
	defer store.Close()

	transport := bulk.NewHTTPTransport(bulk.HTTPConfig{BaseURL: store.URL}, nil)
	sender, receiver, err := bulk.New(transport, bulk.Template{Index: "logs"},
		bulk.WithFlushInterval(time.Second),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx := context.Background()
	sender.Push(ctx, bulk.Index(map[string]any{"msg": "hello"}).WithID("1"))
	sender.Push(ctx, bulk.Update(map[string]any{"msg": "hello again"}).WithID("1"))
	sender.Push(ctx, bulk.Delete().WithID("2"))
	sender.Close()

	for res := range receiver.C() {
		for _, item := range res.Response.Items {
			fmt.Println(item.Action, item.ID, item.Result)
		}
	}
	// Output:
	// index 1 created
	// update 1 updated
	// delete 2 not_found
}

func ExampleWithMaxInFlight() {
	transport := bulk.TransportFunc(func(ctx context.Context, req bulk.Request) (bulk.RawResponse, error) {
		return bulk.RawResponse{Status: 200, Body: []byte(`{"took":0,"errors":false,"items":[{"delete":{"_id":"x","status":404,"result":"not_found"}}]}`)}, nil
	})

	// One batch in flight at a time: results arrive in flush order.
	sender, receiver, _ := bulk.New(transport, bulk.Template{Index: "logs"},
		bulk.WithMaxInFlight(1),
		bulk.WithMaxBatchBytes(0),
	)
	for i := 0; i < 3; i++ {
		sender.Push(context.Background(), bulk.Delete().WithID("x"))
	}
	sender.Close()

	results, _ := bulk.Collect(context.Background(), receiver)
	for _, res := range results {
		fmt.Println(res.Batch, res.Trigger)
	}
	// Output:
	// 1 size
	// 2 size
	// 3 size
}
