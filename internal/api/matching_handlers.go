package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"lending-core/internal/common/logger"
	"lending-core/internal/matching"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
)

// findMatchesSchema validates the request before any scoring runs. The
// scorer re-validates domain invariants; the schema catches shape and
// type errors up front with readable messages.
const findMatchesSchema = `{
	"type": "object",
	"properties": {
		"applicationId": {"type": "string", "minLength": 1},
		"application": {
			"type": "object",
			"properties": {
				"id": {"type": "string"},
				"requestedAmount": {"type": "number", "exclusiveMinimum": 0},
				"purpose": {"type": "string"},
				"country": {"type": "string", "minLength": 1},
				"creditScore": {"type": "integer", "minimum": 300, "maximum": 850}
			},
			"required": ["requestedAmount", "country"]
		},
		"candidates": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"name": {"type": "string"},
					"minimumLendingAmount": {"type": "number", "minimum": 0},
					"maximumLendingAmount": {"type": "number", "minimum": 0},
					"countryOffered": {"type": "string", "minLength": 1},
					"minimumCreditScore": {"type": "integer"},
					"productCategory": {"type": "string"}
				},
				"required": ["id", "minimumLendingAmount", "maximumLendingAmount", "countryOffered"]
			}
		},
		"minScore": {"type": "number", "minimum": 0, "maximum": 1},
		"limit": {"type": "integer", "minimum": 1}
	},
	"anyOf": [
		{"required": ["applicationId"]},
		{"required": ["application"]}
	]
}`

var findMatchesSchemaLoader = gojsonschema.NewStringLoader(findMatchesSchema)

type findMatchesRequest struct {
	ApplicationID string                    `json:"applicationId"`
	Application   *matching.LoanApplication `json:"application"`
	Candidates    []matching.LenderProduct  `json:"candidates"`
	MinScore      float64                   `json:"minScore"`
	Limit         int                       `json:"limit"`
}

// MatchingHandler serves the lender-matching API.
type MatchingHandler struct {
	service *matching.Service
	logger  logger.Logger
}

func NewMatchingHandler(service *matching.Service, log logger.Logger) *MatchingHandler {
	return &MatchingHandler{
		service: service,
		logger:  log.WithFields(map[string]interface{}{"component": "matching_api"}),
	}
}

func (h *MatchingHandler) Register(r gin.IRouter) {
	mg := r.Group("/api/matching")
	mg.POST("/find", h.FindMatches)
	mg.GET("/products", h.ListProducts)
}

func (h *MatchingHandler) FindMatches(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": "unreadable request body",
		}})
		return
	}

	result, err := gojsonschema.Validate(findMatchesSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": "request body is not valid JSON",
		}})
		return
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": strings.Join(details, "; "),
		}})
		return
	}

	var req findMatchesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": err.Error(),
		}})
		return
	}

	var results []matching.MatchResult
	if req.Application != nil {
		results, err = h.service.FindMatches(c.Request.Context(), req.Application, req.Candidates, req.MinScore, req.Limit)
	} else {
		results, err = h.service.FindMatchesForApplication(c.Request.Context(), req.ApplicationID, req.MinScore, req.Limit)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	if results == nil {
		results = []matching.MatchResult{}
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": results,
		"count":   len(results),
	})
}

func (h *MatchingHandler) ListProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if products == nil {
		products = []matching.LenderProduct{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}
