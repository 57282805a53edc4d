package http

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/licensegate"
	"github.com/layer-3/licensegate/contracts"
)

// ProductReader reads product sale state from the license contract.
// *licensegate.Client implements it.
type ProductReader interface {
	ProductInfo(ctx context.Context, productID *big.Int) (*licensegate.ProductInfo, error)
	ProductTokenPrice(ctx context.Context, token common.Address, productID *big.Int) (*big.Int, error)
	ChainID() uint64
}

// ProductHandlers serves public product information
type ProductHandlers struct {
	products ProductReader
	logger   *slog.Logger
}

// NewProductHandlers creates new product handlers
func NewProductHandlers(products ProductReader, logger *slog.Logger) *ProductHandlers {
	return &ProductHandlers{products: products, logger: logger}
}

// Get returns price, supply and limit of a product. With ?token= the
// ERC-20 price in that token's smallest unit is included as well.
func (h *ProductHandlers) Get(c *gin.Context) {
	id, err := licensegate.ParseProductID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product id"})
		return
	}

	var token common.Address
	if t := c.Query("token"); t != "" {
		if !common.IsHexAddress(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token address"})
			return
		}
		token = common.HexToAddress(t)
	}

	ctx := c.Request.Context()
	info, err := h.products.ProductInfo(ctx, id)
	if err != nil {
		h.logger.Error("failed to read product", "product", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read product"})
		return
	}

	resp := gin.H{
		"id":        info.ID.String(),
		"price":     info.Price.String(),
		"supply":    info.Supply.String(),
		"limit":     info.Limit.String(),
		"available": info.Available(),
	}
	if network, err := contracts.Lookup(h.products.ChainID()); err == nil {
		resp["chain_id"] = network.ChainID
		resp["display_price"] = network.FormatNative(info.Price)
	}

	if token != (common.Address{}) {
		price, err := h.products.ProductTokenPrice(ctx, token, id)
		if err != nil {
			h.logger.Error("failed to read token price", "product", id, "token", token.Hex(), "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read token price"})
			return
		}
		resp["token"] = token.Hex()
		resp["token_price"] = price.String()
	}

	c.JSON(http.StatusOK, resp)
}
