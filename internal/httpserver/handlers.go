package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	productdomain "catalog/backend/internal/domain/product"
	productusecase "catalog/backend/internal/usecase/product"

	"github.com/gin-gonic/gin"
)

const productsPath = "/api/admin/products"

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	products := s.engine.Group(productsPath)
	products.GET("", s.handleListProducts)
	products.POST("", s.handleCreateProduct)

	products.GET("/variants", s.handleListVariants)
	products.GET("/variants/:id", s.handleGetVariant)
	products.PUT("/variants/:id/stock", s.handleAdjustStock)
	products.DELETE("/variants/:id", s.handleDeleteVariant)

	products.GET("/images", s.handleListImages)
	products.GET("/images/*filename", s.handleGetImage)

	products.GET("/:id", s.handleGetProduct)
	products.PUT("/:id", s.handleUpdateProduct)
	products.DELETE("/:id", s.handleDeleteProduct)
	products.POST("/:id/image", s.handleUploadImage)
	products.DELETE("/:id/image", s.handleDeleteImage)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			writeJSON(c, http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.productService.List(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, products)
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.productService.Get(c.Request.Context(), id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(c *gin.Context) {
	form, ok := s.parseMultipart(c)
	if !ok {
		return
	}
	defer form.RemoveAll()

	p, ok := readProductPart(c, form)
	if !ok {
		return
	}
	image, closeImage, ok := s.readImagePart(c, form)
	if !ok {
		return
	}
	defer closeImage()

	saved, err := s.productService.Create(c.Request.Context(), p, image)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, saved)
}

// handleUpdateProduct accepts either a JSON body or the multipart form used on create.
func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var (
		p     *productdomain.Product
		image *productusecase.Upload
	)
	switch c.ContentType() {
	case gin.MIMEMultipartPOSTForm:
		form, ok := s.parseMultipart(c)
		if !ok {
			return
		}
		defer form.RemoveAll()
		if p, ok = readProductPart(c, form); !ok {
			return
		}
		upload, closeImage, ok := s.readImagePart(c, form)
		if !ok {
			return
		}
		defer closeImage()
		image = upload
	case gin.MIMEJSON, "":
		var body productdomain.Product
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxJSONBytes)
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(c, http.StatusRequestEntityTooLarge, "payload exceeds the size limit")
				return
			}
			writeError(c, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		p = &body
	default:
		writeError(c, http.StatusUnsupportedMediaType, "unsupported content type")
		return
	}

	saved, err := s.productService.Update(c.Request.Context(), id, p, image)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, saved)
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	result, err := s.productService.Delete(c.Request.Context(), id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	s.logger.InfoContext(c.Request.Context(), "product deleted",
		"product_id", result.ProductID,
		"existed", result.Existed,
		"image_cleanup", result.Image.Outcome.String(),
	)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUploadImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	form, ok := s.parseMultipart(c)
	if !ok {
		return
	}
	defer form.RemoveAll()

	image, closeImage, ok := s.readImagePart(c, form)
	if !ok {
		return
	}
	defer closeImage()
	if image == nil {
		writeError(c, http.StatusBadRequest, "image is required")
		return
	}

	p, err := s.productService.ReplaceImage(c.Request.Context(), id, image)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, p)
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.productService.RemoveImage(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListImages(c *gin.Context) {
	urls, err := s.productService.ListImages(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, urls)
}

func (s *Server) handleGetImage(c *gin.Context) {
	img, mediaType, err := s.productService.OpenImage(c.Request.Context(), c.Param("filename"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	defer img.Content.Close()

	c.Header("Cache-Control", "max-age=86400, public")
	c.Header("Content-Type", mediaType)
	http.ServeContent(c.Writer, c.Request, img.Name, img.ModTime, img.Content)
}

func (s *Server) handleListVariants(c *gin.Context) {
	variants, err := s.productService.ListVariants(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, variants)
}

func (s *Server) handleGetVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := s.productService.GetVariant(c.Request.Context(), id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, v)
}

func (s *Server) handleAdjustStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	delta, err := strconv.ParseInt(c.Query("delta"), 10, 32)
	if err != nil {
		writeError(c, http.StatusBadRequest, "delta must be a 32-bit integer")
		return
	}
	stock, err := s.productService.AdjustVariantStock(c.Request.Context(), id, int(delta))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	s.logger.DebugContext(c.Request.Context(), "stock adjusted", "variant_id", id, "delta", delta, "stock", stock)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.productService.DeleteVariant(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// parseMultipart reads the whole form under the configured body limit.
func (s *Server) parseMultipart(c *gin.Context) (*multipart.Form, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUploadBytes+multipartOverhead)
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(c, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		case errors.Is(err, http.ErrNotMultipart):
			writeError(c, http.StatusUnsupportedMediaType, "expected multipart/form-data")
		default:
			writeError(c, http.StatusBadRequest, "invalid multipart form")
		}
		return nil, false
	}
	return form, true
}

// readProductPart decodes the "product" part, sent either as a JSON file part or a plain field.
func readProductPart(c *gin.Context, form *multipart.Form) (*productdomain.Product, bool) {
	var raw []byte
	switch {
	case len(form.File["product"]) > 0:
		f, err := form.File["product"][0].Open()
		if err != nil {
			writeError(c, http.StatusBadRequest, "unreadable product part")
			return nil, false
		}
		raw, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(c, http.StatusBadRequest, "unreadable product part")
			return nil, false
		}
	case len(form.Value["product"]) > 0:
		raw = []byte(form.Value["product"][0])
	default:
		writeError(c, http.StatusBadRequest, "product part is required")
		return nil, false
	}

	var p productdomain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		writeError(c, http.StatusBadRequest, "invalid product JSON")
		return nil, false
	}
	return &p, true
}

// readImagePart opens the optional "image" file part. A nil upload means none was sent.
func (s *Server) readImagePart(c *gin.Context, form *multipart.Form) (*productusecase.Upload, func(), bool) {
	noop := func() {}
	files := form.File["image"]
	if len(files) == 0 || files[0].Size == 0 {
		return nil, noop, true
	}
	header := files[0]
	if header.Size > s.maxUploadBytes {
		writeError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", s.maxUploadBytes))
		return nil, noop, false
	}
	f, err := header.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable image part")
		return nil, noop, false
	}
	upload := &productusecase.Upload{Filename: header.Filename, Size: header.Size, Content: f}
	return upload, func() { f.Close() }, true
}
