// Package docs provides generated OpenAPI documentation.
//
// Complicheck API
//
//	@title			Complicheck API
//	@version		1.0
//	@description	Document parsing gateway for building consent compliance checking.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/complicheck/complicheck
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/complicheck/serve.go -o ./swagger --parseDependency --parseInternal
