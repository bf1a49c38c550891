package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bakery-backend/internal/usecase"
)

const maxImageBytes = 5 << 20

// imageFromForm saves an optional multipart "image" upload and returns its
// public URL. Empty string when the field is absent.
func (s *Server) imageFromForm(c *gin.Context, kind string) (string, error) {
	hdr, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", nil
		}
		return "", usecase.ErrBadRequest("invalid image upload")
	}
	if hdr.Size > maxImageBytes {
		return "", usecase.ErrBadRequest("image must be 5MB or smaller")
	}
	f, err := hdr.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	url, err := s.assets.Write(kind, hdr.Filename, data)
	if err != nil {
		return "", usecase.ErrBadRequest(err.Error())
	}
	return url, nil
}

func (s *Server) handleListCategories(c *gin.Context) {
	cats, err := s.catalog.ListCategories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": cats})
}

func (s *Server) handleAddCategory(c *gin.Context) {
	image, err := s.imageFromForm(c, "categories")
	if err != nil {
		s.fail(c, err)
		return
	}
	cat, err := s.catalog.AddCategory(c.Request.Context(), usecase.CategoryInput{
		Name:  c.PostForm("name"),
		Image: image,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Category added successfully", "category": cat})
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid category id")
		return
	}
	image, err := s.imageFromForm(c, "categories")
	if err != nil {
		s.fail(c, err)
		return
	}
	cat, err := s.catalog.UpdateCategory(c.Request.Context(), id, usecase.CategoryInput{
		Name:  c.PostForm("name"),
		Image: image,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category updated successfully", "category": cat})
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid category id")
		return
	}
	if err := s.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Category deleted successfully"})
}

func (s *Server) handleListProducts(c *gin.Context) {
	products, err := s.catalog.ListProducts(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (s *Server) handleGetProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	p, err := s.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "product": p})
}

// productInputFromForm reads the multipart product form shared by create and
// update. Price 0 means "not provided" on update.
func (s *Server) productInputFromForm(c *gin.Context) (usecase.ProductInput, error) {
	in := usecase.ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	if v := c.PostForm("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price <= 0 {
			return in, usecase.ErrBadRequest("price must be a positive number")
		}
		in.Price = price
	}
	if v := c.PostForm("category"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			return in, usecase.ErrBadRequest("invalid category id")
		}
		in.CategoryID = id
	}
	image, err := s.imageFromForm(c, "products")
	if err != nil {
		return in, err
	}
	in.Image = image
	return in, nil
}

func (s *Server) handleAddProduct(c *gin.Context) {
	in, err := s.productInputFromForm(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.catalog.AddProduct(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Product added successfully", "product": p})
}

func (s *Server) handleUpdateProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	in, err := s.productInputFromForm(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.catalog.UpdateProduct(c.Request.Context(), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product updated successfully", "product": p})
}

func (s *Server) handleDeleteProduct(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		failJSON(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	if err := s.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Product deleted successfully"})
}
