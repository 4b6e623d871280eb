// Package httputils provides HTTP utility functions.
package httputils

import (
	"net/http"

	domainerrors "github.com/kart-io/thoughtweave/pkg/errors"
	"github.com/kart-io/thoughtweave/pkg/infra/server/transport"
	"github.com/kart-io/thoughtweave/pkg/utils/errors"
	"github.com/kart-io/thoughtweave/pkg/utils/response"
)

// fromDomainErrno bridges the thoughtweave domain error taxonomy
// (pkg/errors.Errno, used throughout internal/*) into the response
// layer's Errno type (pkg/utils/errors.Errno). The two share an identical
// public field shape but are distinct types, so handlers can return
// domain errors directly without importing the response layer.
func fromDomainErrno(e *domainerrors.Errno) *errors.Errno {
	return &errors.Errno{
		Code:      e.Code,
		HTTP:      e.HTTP,
		GRPCCode:  e.GRPCCode,
		MessageEN: e.MessageEN,
		MessageZH: e.MessageZH,
	}
}

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent response format.
func WriteResponse(c transport.Context, err error, data interface{}) {
	if err != nil {
		var resp *response.Response
		switch e := err.(type) {
		case *domainerrors.Errno:
			resp = response.Err(fromDomainErrno(e))
		case *errors.Errno:
			resp = response.Err(e)
		default:
			resp = response.Err(errors.ErrInternal.WithMessage(err.Error()))
		}
		defer response.Release(resp)
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	// data can be *response.Response (e.g. from response.Page) or raw data
	if resp, ok := data.(*response.Response); ok {
		defer response.Release(resp)
		c.JSON(resp.HTTPStatus(), resp)
		return
	}

	resp := response.Success(data)
	defer response.Release(resp)
	c.JSON(resp.HTTPStatus(), resp)
}

// WriteCreated writes a 201 response wrapping data in the standard
// success envelope.
func WriteCreated(c transport.Context, data interface{}) {
	resp := response.Success(data)
	defer response.Release(resp)
	c.JSON(http.StatusCreated, resp)
}
