package contract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// MarketplaceABI is the interface of the deployed Marketplace contract. Method
// and event names must match the deployed bytecode exactly.
const MarketplaceABI = `[
  {"type":"function","name":"getUsers","inputs":[],"outputs":[{"name":"addresses","type":"address[]"},{"name":"statuses","type":"uint8[]"}],"stateMutability":"view"},
  {"type":"function","name":"getUserStatus","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"status","type":"uint8"}],"stateMutability":"view"},
  {"type":"function","name":"getStorefronts","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"names","type":"bytes"},{"name":"balances","type":"uint256[]"},{"name":"productCounts","type":"uint256[]"}],"stateMutability":"view"},
  {"type":"function","name":"getAllProductsFromStorefront","inputs":[{"name":"storeOwner","type":"address"},{"name":"storeIndex","type":"uint256"}],"outputs":[{"name":"names","type":"bytes"},{"name":"prices","type":"uint256[]"},{"name":"quantities","type":"uint256[]"},{"name":"ipfsHashes","type":"bytes32[]"}],"stateMutability":"view"},
  {"type":"function","name":"getUserBalance","inputs":[{"name":"addr","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view"},
  {"type":"function","name":"requestStoreOwnerStatus","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addStoreOwner","inputs":[{"name":"addr","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addAdmin","inputs":[{"name":"addr","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"deleteUser","inputs":[{"name":"addr","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addStorefront","inputs":[{"name":"name","type":"string"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"removeStorefront","inputs":[{"name":"storeOwner","type":"address"},{"name":"storeIndex","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addProductToStoreFront","inputs":[{"name":"storeIndex","type":"uint256"},{"name":"name","type":"string"},{"name":"price","type":"uint256"},{"name":"quantity","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"removeProductFromStorefront","inputs":[{"name":"storeOwner","type":"address"},{"name":"storeIndex","type":"uint256"},{"name":"index","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"updatePrice","inputs":[{"name":"storeIndex","type":"uint256"},{"name":"index","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"updateIpfsHashForProductPic","inputs":[{"name":"storeIndex","type":"uint256"},{"name":"index","type":"uint256"},{"name":"ipfsHash","type":"bytes32"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"purchaseProduct","inputs":[{"name":"storeOwner","type":"address"},{"name":"storeIndex","type":"uint256"},{"name":"productIndex","type":"uint256"},{"name":"quantity","type":"uint256"}],"outputs":[],"stateMutability":"payable"},
  {"type":"function","name":"withdrawFunds","inputs":[{"name":"storeIndex","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"toggleContractActive","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"emergencyWithdraw","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"event","name":"LogStoreOwnerRightsRequested","anonymous":false,"inputs":[{"name":"addr","type":"address","indexed":false}]},
  {"type":"event","name":"LogStoreOwnerRightsGranted","anonymous":false,"inputs":[{"name":"addr","type":"address","indexed":false}]},
  {"type":"event","name":"LogAdminRightsGranted","anonymous":false,"inputs":[{"name":"addr","type":"address","indexed":false}]},
  {"type":"event","name":"LogDeleteUser","anonymous":false,"inputs":[{"name":"addr","type":"address","indexed":false}]},
  {"type":"event","name":"LogNewStorefrontCreated","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":false},{"name":"name","type":"string","indexed":false},{"name":"balance","type":"uint256","indexed":false},{"name":"productCount","type":"uint256","indexed":false}]},
  {"type":"event","name":"LogStorefrontRemoved","anonymous":false,"inputs":[{"name":"storeOwner","type":"address","indexed":false},{"name":"storeIndex","type":"uint256","indexed":false}]},
  {"type":"event","name":"LogNewProductAdded","anonymous":false,"inputs":[{"name":"name","type":"string","indexed":false},{"name":"price","type":"uint256","indexed":false},{"name":"quantity","type":"uint256","indexed":false}]},
  {"type":"event","name":"LogProductRemoved","anonymous":false,"inputs":[{"name":"storeOwner","type":"address","indexed":false},{"name":"storeIndex","type":"uint256","indexed":false},{"name":"index","type":"uint256","indexed":false}]},
  {"type":"event","name":"LogProductPictureIpfsHashAdded","anonymous":false,"inputs":[{"name":"storeOwner","type":"address","indexed":false},{"name":"storeIndex","type":"uint256","indexed":false},{"name":"index","type":"uint256","indexed":false},{"name":"ipfsHash","type":"bytes32","indexed":false}]},
  {"type":"event","name":"LogPurchaseProduct","anonymous":false,"inputs":[{"name":"storeOwner","type":"address","indexed":false},{"name":"storeIndex","type":"uint256","indexed":false},{"name":"productIndex","type":"uint256","indexed":false},{"name":"quantity","type":"uint256","indexed":false}]},
  {"type":"event","name":"LogWithdraw","anonymous":false,"inputs":[{"name":"addr","type":"address","indexed":true},{"name":"storeIndex","type":"uint256","indexed":false},{"name":"amount","type":"uint256","indexed":false}]}
]`

// Query and command method names.
const (
	MethodGetUsers                     = "getUsers"
	MethodGetUserStatus                = "getUserStatus"
	MethodGetStorefronts               = "getStorefronts"
	MethodGetAllProductsFromStorefront = "getAllProductsFromStorefront"
	MethodGetUserBalance               = "getUserBalance"

	MethodRequestStoreOwnerStatus     = "requestStoreOwnerStatus"
	MethodAddStoreOwner               = "addStoreOwner"
	MethodAddAdmin                    = "addAdmin"
	MethodDeleteUser                  = "deleteUser"
	MethodAddStorefront               = "addStorefront"
	MethodRemoveStorefront            = "removeStorefront"
	MethodAddProductToStoreFront      = "addProductToStoreFront"
	MethodRemoveProductFromStorefront = "removeProductFromStorefront"
	MethodUpdatePrice                 = "updatePrice"
	MethodUpdateIpfsHashForProductPic = "updateIpfsHashForProductPic"
	MethodPurchaseProduct             = "purchaseProduct"
	MethodWithdrawFunds               = "withdrawFunds"
	MethodToggleContractActive        = "toggleContractActive"
	MethodEmergencyWithdraw           = "emergencyWithdraw"
)

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parseErr   error
)

// ParsedABI returns the parsed Marketplace ABI.
func ParsedABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parseErr = abi.JSON(strings.NewReader(MarketplaceABI))
		if parseErr != nil {
			parseErr = fmt.Errorf("contract: parse marketplace abi: %w", parseErr)
		}
	})
	return parsedABI, parseErr
}
