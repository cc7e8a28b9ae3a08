package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vishaga/online_store/internal/handlers"
	"github.com/vishaga/online_store/internal/middleware/auth"
)

type Deps struct {
	DB              *gorm.DB
	AuthHandler     *handlers.AuthHandler
	CartHandler     *handlers.CartHandler
	ProductHandler  *handlers.ProductHandler
	CheckoutHandler *handlers.CheckoutHandler
	OrderHandler    *handlers.OrderHandler
	SearchHandler   *handlers.SearchHandler
	TokenAuth       *auth.TokenAuth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/signup", d.AuthHandler.Signup)
	e.POST("/login", d.AuthHandler.Login)
	e.GET("/get_users", d.AuthHandler.GetUsers)

	e.POST("/upload", d.ProductHandler.Upload)
	e.GET("/products", d.ProductHandler.GetProducts)
	e.GET("/products/search", d.SearchHandler.Search)
	e.GET("/products/:id", d.ProductHandler.GetProduct)
	e.PUT("/products/:id", d.ProductHandler.UpdateProduct)
	e.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	e.GET("/product_images/:id", d.ProductHandler.GetProductImage)

	private := e.Group("", d.TokenAuth.RequireToken)

	private.POST("/logout", d.AuthHandler.Logout)
	private.GET("/user_profile", d.AuthHandler.Profile)
	private.PUT("/user_profile", d.AuthHandler.UpdateProfile)
	private.GET("/check_login", d.AuthHandler.CheckLogin)

	private.POST("/cart", d.CartHandler.AddToCart)
	private.GET("/cart/:user_id", d.CartHandler.GetCart)
	private.PUT("/cart/:item_id", d.CartHandler.UpdateQuantity)
	private.DELETE("/cart/:item_id", d.CartHandler.RemoveFromCart)

	private.POST("/cart/checkout", d.CheckoutHandler.CheckoutCart)
	private.POST("/cart/buy_item", d.CheckoutHandler.BuyItem)
	private.POST("/cart/verify_payment", d.CheckoutHandler.VerifyPayment)

	private.GET("/orders_history", d.OrderHandler.GetAllOrders)
	private.GET("/orders_history/:user_id", d.OrderHandler.GetUserOrders)
}
