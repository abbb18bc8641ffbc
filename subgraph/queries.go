package subgraph

const (
	originTransferFields = `
      transferId
      nonce
      originDomain
      destinationDomain
      to
      callData
      chainId
      originator
      transactingAsset
      localAsset
      amount
      transactionHash
      caller
      timestamp
      blockNumber
      gasPrice
      gasLimit`

	destinationTransferFields = `
      transferId
      nonce
      originDomain
      destinationDomain
      to
      callData
      chainId
      status
      routers {
        id
      }
      localAsset
      amount
      executedTransactionHash
      executedCaller
      executedTimestamp
      executedBlockNumber
      executedGasPrice
      executedGasLimit
      reconciledTransactionHash
      reconciledCaller
      reconciledTimestamp
      reconciledBlockNumber
      reconciledGasPrice
      reconciledGasLimit`
)

const metaQuery = `query GetBlockNumber {
  _meta {
    block {
      number
    }
  }
}`

const originTransfersQuery = `query GetOriginTransfers($nonce: BigInt!, $maxBlockNumber: BigInt!, $first: Int!, $orderDirection: OrderDirection!) {
  originTransfers(
    where: { nonce_gt: $nonce, blockNumber_lte: $maxBlockNumber }
    first: $first
    orderBy: nonce
    orderDirection: $orderDirection
  ) {` + originTransferFields + `
  }
}`

const destinationTransfersByIDsQuery = `query GetDestinationTransfersByIds($ids: [Bytes!]!, $first: Int!) {
  destinationTransfers(where: { transferId_in: $ids }, first: $first) {` + destinationTransferFields + `
  }
}`

const destinationTransfersByExecuteTimestampQuery = `query GetDestinationTransfersByExecutedTimestamp($timestamp: BigInt!, $maxBlockNumber: BigInt!, $first: Int!, $orderDirection: OrderDirection!) {
  destinationTransfers(
    where: { executedTimestamp_gte: $timestamp, executedBlockNumber_lte: $maxBlockNumber }
    first: $first
    orderBy: executedTimestamp
    orderDirection: $orderDirection
  ) {` + destinationTransferFields + `
  }
}`

const destinationTransfersByReconcileTimestampQuery = `query GetDestinationTransfersByReconciledTimestamp($timestamp: BigInt!, $maxBlockNumber: BigInt!, $first: Int!, $orderDirection: OrderDirection!) {
  destinationTransfers(
    where: { reconciledTimestamp_gte: $timestamp, reconciledBlockNumber_lte: $maxBlockNumber }
    first: $first
    orderBy: reconciledTimestamp
    orderDirection: $orderDirection
  ) {` + destinationTransferFields + `
  }
}`

const assetBalancesQuery = `query GetAssetBalances($first: Int!, $skip: Int!) {
  assetBalances(first: $first, skip: $skip, orderBy: id) {
    amount
    router {
      id
    }
    asset {
      canonicalId
      canonicalDomain
      local
      adoptedAsset
    }
  }
}`
