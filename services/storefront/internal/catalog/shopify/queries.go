package shopify

import "fmt"

const productFields = `
  id
  title
  handle
  description
  descriptionHtml
  priceRange {
    minVariantPrice {
      amount
      currencyCode
    }
  }
  images(first: %[1]d) {
    edges {
      node {
        url
        altText
        width
        height
      }
    }
  }
  variants(first: %[1]d) {
    edges {
      node {
        id
        title
        availableForSale
        price {
          amount
          currencyCode
        }
      }
    }
  }`

const collectionFields = `
  id
  title
  handle
  description
  image {
    url
    altText
  }`

var (
	productsQuery = `query getProducts {
  products(first: 20) {
    edges {
      node {` + fmt.Sprintf(productFields, 5) + `
      }
    }
  }
}`

	productQuery = `query getProduct($handle: String!) {
  product(handle: $handle) {` + fmt.Sprintf(productFields, 10) + `
  }
}`

	collectionsQuery = `query getCollections {
  collections(first: 10) {
    edges {
      node {` + collectionFields + `
      }
    }
  }
}`

	collectionQuery = `query getCollection($handle: String!) {
  collection(handle: $handle) {` + collectionFields + `
    products(first: 20) {
      edges {
        node {` + fmt.Sprintf(productFields, 5) + `
        }
      }
    }
  }
}`
)
