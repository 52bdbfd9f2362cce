package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xaenox/nutrobo/internal/assistant"
	"github.com/xaenox/nutrobo/internal/food"
	"github.com/xaenox/nutrobo/internal/http/handler"
	"github.com/xaenox/nutrobo/internal/service"
)

var _ = Describe("StatusFor", func() {
	DescribeTable("maps errors to statuses",
		func(err error, status int) {
			got, msg := handler.StatusFor(err)
			Expect(got).To(Equal(status))
			Expect(msg).NotTo(BeEmpty())
		},
		Entry("validation", &service.Error{Kind: service.ErrValidation, Message: "bad"}, http.StatusBadRequest),
		Entry("unauthorized", &service.Error{Kind: service.ErrUnauthorized, Message: "no"}, http.StatusUnauthorized),
		Entry("not found", &service.Error{Kind: service.ErrNotFound, Message: "Barcode not found."}, http.StatusNotFound),
		Entry("deadline", fmt.Errorf("poll: %w", context.DeadlineExceeded), http.StatusRequestTimeout),
		Entry("transport", &assistant.TransportError{Op: "CreateRun", Err: errors.New("boom")}, http.StatusBadGateway),
		Entry("provider", fmt.Errorf("lookup: %w", &food.ProviderError{Source: "fdc", StatusCode: 500}), http.StatusBadGateway),
		Entry("run failed", &assistant.RunError{Status: assistant.RunFailed, State: assistant.StateFailed}, http.StatusBadGateway),
		Entry("run expired", &assistant.RunError{Status: assistant.RunExpired, State: assistant.StateExpired}, http.StatusBadGateway),
		Entry("run cancelled", &assistant.RunError{Status: assistant.RunCancelled, State: assistant.StateCancelled}, http.StatusConflict),
		Entry("unknown", errors.New("boom"), http.StatusInternalServerError),
	)
})
