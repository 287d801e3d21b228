package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/cart"
	"storefront/models"
)

// cartNamespace is the fixed storage namespace for cart snapshots.
const cartNamespace = "storefront_cart"

func CartKey(userID string) string {
	return cartNamespace + ":" + userID
}

type CartController struct {
	Snapshots cart.SnapshotStore
}

func (cc *CartController) cartFor(c *gin.Context) (*cart.Cart, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	return cart.New(cc.Snapshots, CartKey(userID.(string))), true
}

func (cc *CartController) GetCart(c *gin.Context) {
	userCart, ok := cc.cartFor(c)
	if !ok {
		return
	}
	cc.respond(c, userCart)
}

func (cc *CartController) AddItem(c *gin.Context) {
	userCart, ok := cc.cartFor(c)
	if !ok {
		return
	}

	var line models.CartLine
	if err := c.ShouldBindJSON(&line); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userCart.Add(line)
	cc.respond(c, userCart)
}

func (cc *CartController) UpdateItemQuantity(c *gin.Context) {
	userCart, ok := cc.cartFor(c)
	if !ok {
		return
	}

	var request struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userCart.UpdateQuantity(c.Param("id"), request.Quantity)
	cc.respond(c, userCart)
}

func (cc *CartController) RemoveItem(c *gin.Context) {
	userCart, ok := cc.cartFor(c)
	if !ok {
		return
	}
	userCart.Remove(c.Param("id"))
	cc.respond(c, userCart)
}

func (cc *CartController) ClearCart(c *gin.Context) {
	userCart, ok := cc.cartFor(c)
	if !ok {
		return
	}
	userCart.Clear()
	cc.respond(c, userCart)
}

func (cc *CartController) respond(c *gin.Context, userCart *cart.Cart) {
	lines := userCart.Lines()
	if lines == nil {
		lines = []models.CartLine{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      lines,
		"item_count": userCart.ItemCount(),
		"subtotal":   userCart.Subtotal(),
	})
}
