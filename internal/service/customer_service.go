package service

import (
	"fmt"

	"corebank/internal/customer"
)

type CustomerService struct {
	directory *customer.Directory
}

func NewCustomerService(directory *customer.Directory) *CustomerService {
	return &CustomerService{directory: directory}
}

// CreateCustomerRequest 字段校验由 gin binding 完成
type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=64"`
	Age     int    `json:"age" binding:"required,gte=18,lte=120"`
	Contact string `json:"contact" binding:"required,min=7,max=32"`
	Address string `json:"address" binding:"required,min=5,max=256"`
	Type    string `json:"type" binding:"omitempty,oneof=Regular Premium regular premium"`
}

func (s *CustomerService) Create(req *CreateCustomerRequest) (customer.Customer, error) {
	typ, err := customer.ParseType(req.Type)
	if err != nil {
		return customer.Customer{}, fmt.Errorf("%w: %v", ErrInvalidParam, err)
	}
	return s.directory.Create(req.Name, req.Age, req.Contact, req.Address, typ), nil
}

func (s *CustomerService) Get(id string) (customer.Customer, error) {
	return s.directory.Get(id)
}

// List name 非空时按姓名子串过滤
func (s *CustomerService) List(name string) []customer.Customer {
	if name != "" {
		return s.directory.SearchByName(name)
	}
	return s.directory.List()
}
