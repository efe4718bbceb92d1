// utils/http.go - JSON response helpers for fiber handlers
package utils

import (
	"errors"
	"log"

	"acmportal/apperrors"

	"github.com/gofiber/fiber/v2"
)

// JSONSuccess sends a success envelope. Map payloads are merged into the
// envelope, anything else is placed under "data".
func JSONSuccess(c *fiber.Ctx, status int, data interface{}) error {
	response := fiber.Map{
		"success": true,
	}

	if dataMap, ok := data.(fiber.Map); ok {
		for k, v := range dataMap {
			response[k] = v
		}
	} else if data != nil {
		response["data"] = data
	}

	return c.Status(status).JSON(response)
}

// JSONError sends an error envelope for err, using the domain code when
// there is one.
func JSONError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body := fiber.Map{
			"success":   false,
			"errorCode": appErr.Code,
			"error":     appErr.Message,
		}
		if len(appErr.Metadata) > 0 {
			body["details"] = appErr.Metadata
		}
		return c.Status(appErr.Status()).JSON(body)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"error":   fiberErr.Message,
		})
	}

	log.Printf("❌ Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success":   false,
		"errorCode": apperrors.CodeUnknown,
		"error":     "Internal server error",
	})
}
